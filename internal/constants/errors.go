package constants

import "errors"

// Configuration errors.
var (
	ErrNoCloudsConfigured  = errors.New("no clouds configured, use 'osc clouds add' to add one")
	ErrCloudNotFound       = errors.New("cloud configuration not found")
	ErrNoCurrentCloud      = errors.New("no current cloud, use 'osc clouds use' to select one")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrEmptyToken          = errors.New("token must not be empty")
)
