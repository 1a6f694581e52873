package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrProvisioningFailed = errors.New("load balancer provisioning failed")
)

// WaitForActive polls the load balancer until its provisioning status is
// ACTIVE or ERROR. Zero interval or timeout use the package defaults. On
// timeout the last retrieved state is kept on lb.
func (lb *LoadBalancer) WaitForActive(ctx context.Context, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}

	if timeout <= 0 {
		timeout = constants.DefaultPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := lb.Retrieve(pollCtx)
		if err != nil {
			return fmt.Errorf("getting load balancer status: %w", err)
		}

		switch status := lb.String("provisioningStatus"); status {
		case constants.ProvisioningActive:
			return nil
		case constants.ProvisioningError:
			return fmt.Errorf("%w: %s is %s", ErrProvisioningFailed, lb.ID(), status)
		}

		select {
		case <-pollCtx.Done():
			return fmt.Errorf("timeout waiting for load balancer %s: %w", lb.ID(), pollCtx.Err())
		case <-ticker.C:
		}
	}
}
