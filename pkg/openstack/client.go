package openstack

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/osclient/internal/client"
	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/internal/http"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

// Client bundles the service facades of one cloud.
type Client = client.Client

// Service facades and the resources they hand out.
type (
	IdentityClient    = client.IdentityClient
	NetworkingClient  = client.NetworkingClient
	ObjectStoreClient = client.ObjectStoreClient
	LoadBalancer      = client.LoadBalancer
)

// Option customizes New.
type Option func(*settings)

type settings struct {
	store     *osapi.CatalogStore
	transport osapi.Transport
	client    []client.Option
}

// WithCatalogStore reuses catalogs across clients. It takes precedence over
// Config.CatalogCache.
func WithCatalogStore(store *osapi.CatalogStore) Option {
	return func(o *settings) {
		o.store = store
	}
}

// WithTransport sends every request, including token validation, through
// transport.
func WithTransport(transport osapi.Transport) Option {
	return func(o *settings) {
		o.transport = transport
		o.client = append(o.client, client.WithTransport(transport))
	}
}

// WithRateLimit caps outgoing requests per second. Close the client to stop
// the limiter.
func WithRateLimit(requestsPerSecond int) Option {
	return func(o *settings) {
		o.client = append(o.client, client.WithRateLimit(requestsPerSecond))
	}
}

// WithCircuitBreaker fails fast after repeated server errors.
func WithCircuitBreaker(config *osapi.CircuitBreakerConfig) Option {
	return func(o *settings) {
		o.client = append(o.client, client.WithCircuitBreaker(config))
	}
}

// tokenOperation validates a token and returns it with its catalog.
var tokenOperation = &osapi.Operation{
	Name:   "validateToken",
	Method: osapi.MethodGet,
	Path:   constants.TokenPath,
	Params: map[string]osapi.Param{
		"authToken":    {Location: osapi.ParamHeader, SentAs: constants.HeaderAuthToken, Required: true},
		"subjectToken": {Location: osapi.ParamHeader, SentAs: constants.HeaderSubjectToken, Required: true},
	},
}

// New creates an OpenStack client. The service catalog comes from, in order:
// config.Catalog, config.CatalogFile, the catalog cache, or the identity
// service.
func New(ctx context.Context, config *osapi.Config, opts ...Option) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Logger == nil && cfg.Debug {
		cfg.Logger = osapi.NewConsoleLogger("debug")
	}

	options := &settings{}
	for _, opt := range opts {
		opt(options)
	}

	catalog, err := loadCatalog(ctx, &cfg, options)
	if err != nil {
		return nil, err
	}

	cli, err := client.New(ctx, &cfg, catalog, options.client...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NewWithCatalog creates a client for a catalog obtained elsewhere.
func NewWithCatalog(ctx context.Context, catalog *osapi.Catalog, token, region string) (*Client, error) {
	return New(ctx, &osapi.Config{
		Catalog:   catalog,
		AuthToken: token,
		Region:    region,
	})
}

// NewWithToken creates a client whose catalog is read from the identity
// service by validating token.
func NewWithToken(ctx context.Context, identityEndpoint, token, region string) (*Client, error) {
	return New(ctx, &osapi.Config{
		IdentityEndpoint: identityEndpoint,
		AuthToken:        token,
		Region:           region,
	})
}

func loadCatalog(ctx context.Context, config *osapi.Config, options *settings) (*osapi.Catalog, error) {
	if config.Catalog != nil {
		err := config.Catalog.Validate()
		if err != nil {
			return nil, err
		}

		return config.Catalog, nil
	}

	if config.CatalogFile != "" {
		return osapi.LoadCatalogFile(config.CatalogFile)
	}

	if config.IdentityEndpoint == "" || config.AuthToken == "" {
		return nil, osapi.ErrCatalogSourceMissing
	}

	store, release, err := catalogStore(config, options)
	if err != nil {
		return nil, err
	}
	defer release()

	key := osapi.CatalogCacheKey(config.IdentityEndpoint, config.AuthToken)
	if catalog, ok := store.Load(ctx, key); ok {
		return catalog, nil
	}

	catalog, err := FetchCatalog(ctx, config, options.transport)
	if err != nil {
		return nil, err
	}

	err = store.Save(ctx, key, catalog)
	if err != nil {
		logger(config).Warn("Failed to cache service catalog", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return catalog, nil
}

// catalogStore returns the store to consult and a func releasing backends
// opened for this call only.
func catalogStore(config *osapi.Config, options *settings) (*osapi.CatalogStore, func(), error) {
	if options.store != nil {
		return options.store, func() {}, nil
	}

	if config.CatalogCache == nil {
		return osapi.NewCatalogStore(nil, config.CatalogTTL, config.Logger), func() {}, nil
	}

	cache, err := osapi.NewCacheFromConfig(config.CatalogCache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog cache: %w", err)
	}

	release := func() {
		switch closer := cache.(type) {
		case *osapi.BadgerCache:
			_ = closer.Close()
		case *osapi.NATSKVCache:
			closer.Close()
		}
	}

	return osapi.NewCatalogStore(cache, config.CatalogTTL, config.Logger), release, nil
}

// FetchCatalog validates config.AuthToken against the identity service and
// returns the catalog embedded in the token. A nil transport uses the
// retrying HTTP client.
func FetchCatalog(ctx context.Context, config *osapi.Config, transport osapi.Transport) (*osapi.Catalog, error) {
	if transport == nil {
		var httpOpts []http.Option
		if config.SkipTLSVerify {
			httpOpts = append(httpOpts, http.WithInsecureSkipVerify(true))
		}

		if config.UserAgent != "" {
			httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
		}

		transport = http.NewClient(nil, append(httpOpts, http.WithTimeout(constants.ShortHTTPTimeout))...)
	}

	base := strings.TrimSuffix(strings.TrimSuffix(config.IdentityEndpoint, "/"), "/v3")
	exec := osapi.NewExecutor(transport, base, osapi.WithExecutorLogger(logger(config)))

	resp, err := exec.Execute(ctx, tokenOperation, osapi.Params{
		"authToken":    config.AuthToken,
		"subjectToken": config.AuthToken,
	})
	if err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}

	catalog, err := osapi.ParseTokenCatalog(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog from token: %w", err)
	}

	logger(config).Debug("Fetched service catalog", map[string]interface{}{
		"services": len(catalog.Services),
	})

	return catalog, nil
}

func logger(config *osapi.Config) osapi.Logger {
	if config.Logger == nil {
		return osapi.NopLogger{}
	}

	return config.Logger
}
