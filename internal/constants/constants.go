package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token validation.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 3
)

// OpenStack headers.
const (
	// HeaderAuthToken carries the caller's token.
	HeaderAuthToken = "X-Auth-Token" //nolint:gosec // header name, not a credential

	// HeaderSubjectToken names the token being validated.
	HeaderSubjectToken = "X-Subject-Token" //nolint:gosec // header name, not a credential

	// HeaderRequestID is the request id header understood by OpenStack services.
	HeaderRequestID = "X-Openstack-Request-Id"
)

// Catalog defaults.
const (
	// DefaultInterface is the endpoint interface used when none is configured.
	DefaultInterface = "public"

	// ServiceTypeIdentity is the catalog type of Keystone.
	ServiceTypeIdentity = "identity"

	// ServiceTypeNetwork is the catalog type of Neutron / Octavia.
	ServiceTypeNetwork = "network"

	// ServiceTypeLoadBalancer is the catalog type of a standalone Octavia.
	ServiceTypeLoadBalancer = "load-balancer"

	// ServiceTypeObjectStore is the catalog type of Swift.
	ServiceTypeObjectStore = "object-store"

	// TokenPath validates a token and returns its catalog.
	TokenPath = "/v3/auth/tokens"
)

// Polling defaults.
const (
	// DefaultPollInterval is the wait between status checks.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollTimeout bounds how long a status wait may take.
	DefaultPollTimeout = 10 * time.Minute
)

// Load balancer provisioning states.
const (
	// ProvisioningActive is the state after a successful change.
	ProvisioningActive = "ACTIVE"

	// ProvisioningError is the state after a failed change.
	ProvisioningError = "ERROR"
)

// Cache defaults.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 100

	// DefaultCatalogTTL is how long a fetched catalog is reused.
	DefaultCatalogTTL = 30 * time.Minute

	// DefaultNATSBucket is the KV bucket holding cached catalogs.
	DefaultNATSBucket = "osclient-catalogs"
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Circuit breaker defaults.
const (
	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// State and status constants.
const (
	// StatusClosed indicates a closed state.
	StatusClosed = "closed"

	// StatusOpen indicates an open state.
	StatusOpen = "open"

	// StatusHalfOpen indicates a half-open state.
	StatusHalfOpen = "half-open"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)

// UI and display constants.
const (
	// CheckMarkSymbol is used to indicate current/active items.
	CheckMarkSymbol = "✓"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// TokenDisplayLength is the prefix of a token shown before masking.
	TokenDisplayLength = 8
)
