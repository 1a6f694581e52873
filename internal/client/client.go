package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/osclient/internal/auth"
	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/internal/http"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired = errors.New("client config is required")
)

// Client bundles the service facades of one cloud. Facades whose service is
// missing from the catalog report osapi.ErrServiceUnavailable.
type Client struct {
	transport    osapi.Transport
	tokenManager auth.TokenManager
	resolver     *osapi.Resolver
	executor     *osapi.Executor
	metrics      *osapi.MetricsCollector
	limiter      *osapi.RateLimiter
	logger       osapi.Logger

	identity    *IdentityClient
	networking  *NetworkingClient
	objectStore *ObjectStoreClient

	unavailable map[string]error
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport      osapi.Transport
	tokenManager   auth.TokenManager
	rateLimit      int
	circuitBreaker *osapi.CircuitBreakerConfig
}

// WithTransport sends requests through transport instead of the retrying
// HTTP client.
func WithTransport(transport osapi.Transport) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

// WithTokenManager supplies the X-Auth-Token instead of config.AuthToken.
func WithTokenManager(tokenManager auth.TokenManager) Option {
	return func(o *clientOptions) {
		o.tokenManager = tokenManager
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(requestsPerSecond int) Option {
	return func(o *clientOptions) {
		o.rateLimit = requestsPerSecond
	}
}

// WithCircuitBreaker fails fast after repeated server errors.
func WithCircuitBreaker(config *osapi.CircuitBreakerConfig) Option {
	return func(o *clientOptions) {
		o.circuitBreaker = config
	}
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *osapi.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithInsecureSkipVerify(true))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// createTokenManager serves config.AuthToken, or nothing for anonymous calls.
func createTokenManager(config *osapi.Config) auth.TokenManager {
	if config.AuthToken == "" {
		return nil
	}

	return auth.NewStaticTokenManager(config.AuthToken, config.TokenExpiresAt)
}

// New creates a client for the services of catalog. Call Close to release
// the rate limiter when WithRateLimit is used.
func New(_ context.Context, config *osapi.Config, catalog *osapi.Catalog, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	tokenManager := options.tokenManager
	if tokenManager == nil {
		tokenManager = createTokenManager(config)
	}

	logger := config.Logger
	if logger == nil {
		logger = osapi.NopLogger{}
	}

	client := &Client{
		tokenManager: tokenManager,
		metrics:      osapi.NewMetricsCollector(),
		logger:       logger,
		unavailable:  map[string]error{},
	}

	client.transport = http.NewClient(tokenManager, createHTTPClientOptions(config)...)

	chain := osapi.NewInterceptorChain().
		AddRequestInterceptor(osapi.RequestIDInterceptor()).
		AddRequestInterceptor(osapi.MetricsRequestInterceptor(client.metrics)).
		AddResponseInterceptor(osapi.MetricsResponseInterceptor(client.metrics))

	if options.transport != nil {
		client.transport = options.transport

		if tokenManager != nil {
			chain.AddRequestInterceptor(osapi.AuthenticationInterceptor(tokenManager.GetToken))
		}
	}

	if options.rateLimit > 0 {
		client.limiter = osapi.NewRateLimiter(options.rateLimit)
		chain.AddRequestInterceptor(osapi.RateLimitInterceptor(client.limiter))
	}

	if options.circuitBreaker != nil {
		breaker := osapi.NewCircuitBreaker(options.circuitBreaker)
		chain.AddRequestInterceptor(osapi.CircuitBreakerRequestInterceptor(breaker)).
			AddResponseInterceptor(osapi.CircuitBreakerResponseInterceptor(breaker))
	}

	if config.Logger != nil {
		chain.AddRequestInterceptor(osapi.LoggingInterceptor(logger)).
			AddResponseInterceptor(osapi.LoggingResponseInterceptor(logger))
	}

	client.executor = osapi.NewExecutor(client.transport, "",
		osapi.WithExecutorLogger(logger),
		osapi.WithInterceptors(chain),
	)

	client.resolver = osapi.NewResolver(catalog, config.Region, config.Interface).
		WithOverrides(config.EndpointOverrides)

	client.initializeServiceClients()

	return client, nil
}

// initializeServiceClients resolves every known service. A service that
// cannot be resolved is remembered and reported by its accessor.
func (c *Client) initializeServiceClients() {
	if endpoint, err := c.resolve(constants.ServiceTypeIdentity); err == nil {
		c.identity = NewIdentityClient(c.executor.WithBaseURL(identityBaseURL(endpoint)))
	}

	// Octavia serves the same LBaaS v2 API under its own catalog type.
	if endpoint, err := c.resolve(constants.ServiceTypeNetwork); err == nil {
		c.networking = NewNetworkingClient(c.executor.WithBaseURL(endpoint))
	} else if endpoint, err := c.resolve(constants.ServiceTypeLoadBalancer); err == nil {
		c.networking = NewNetworkingClient(c.executor.WithBaseURL(endpoint))
	}

	if endpoint, err := c.resolve(constants.ServiceTypeObjectStore); err == nil {
		c.objectStore = NewObjectStoreClient(c.executor.WithBaseURL(endpoint))
	}
}

func (c *Client) resolve(serviceType string) (string, error) {
	endpoint, err := c.resolver.ResolveType(serviceType)
	if err == nil {
		return endpoint, nil
	}

	if !errors.Is(err, osapi.ErrServiceUnavailable) {
		err = fmt.Errorf("%w: %w", osapi.ErrServiceUnavailable, err)
	}

	c.unavailable[serviceType] = err
	c.logger.Debug("Service not configured", map[string]interface{}{
		"type":  serviceType,
		"error": err.Error(),
	})

	return "", err
}

// identityBaseURL appends the API version Keystone catalogs often omit.
func identityBaseURL(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if strings.HasSuffix(endpoint, "/v3") {
		return endpoint
	}

	return endpoint + "/v3"
}

// Identity returns the Keystone v3 facade.
func (c *Client) Identity() (*IdentityClient, error) {
	if c.identity == nil {
		return nil, fmt.Errorf("identity: %w", c.unavailable[constants.ServiceTypeIdentity])
	}

	return c.identity, nil
}

// Networking returns the Neutron v2 facade.
func (c *Client) Networking() (*NetworkingClient, error) {
	if c.networking == nil {
		return nil, fmt.Errorf("networking: %w", c.unavailable[constants.ServiceTypeNetwork])
	}

	return c.networking, nil
}

// ObjectStore returns the Swift v1 facade.
func (c *Client) ObjectStore() (*ObjectStoreClient, error) {
	if c.objectStore == nil {
		return nil, fmt.Errorf("object store: %w", c.unavailable[constants.ServiceTypeObjectStore])
	}

	return c.objectStore, nil
}

// Catalog returns the service catalog the client was built from.
func (c *Client) Catalog() *osapi.Catalog {
	return c.resolver.Catalog()
}

// Resolver returns the endpoint resolver.
func (c *Client) Resolver() *osapi.Resolver {
	return c.resolver
}

// Executor returns an executor targeting baseURL with the client's
// authentication, interceptors and transport.
func (c *Client) Executor(baseURL string) *osapi.Executor {
	return c.executor.WithBaseURL(baseURL)
}

// Metrics returns per endpoint request counters.
func (c *Client) Metrics() *osapi.MetricsCollector {
	return c.metrics
}

// Close stops the rate limiter. Requests made afterwards through a rate
// limited client fail with osapi.ErrRateLimiterClosed.
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Close()
	}
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}
