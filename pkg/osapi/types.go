package osapi

import (
	"context"
	"net/http"
	"time"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Attributes is the local attribute bag of a Resource. Values are strings,
// int64, float64, bool, nil, opaque structures (map[string]any / []any),
// *Resource or []*Resource.
type Attributes map[string]any

// Params are the caller supplied parameters of a single operation call,
// keyed by the parameter names declared in Operation.Params.
type Params map[string]any

// Merge returns a new Params holding p overlaid with other.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}

// Transport is the synchronous request/response primitive the core is built
// on. Non-2xx statuses are returned as data; an error means the exchange
// itself failed (network, timeout, cancellation).
type Transport interface {
	Send(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*TransportResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*TransportResponse, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*TransportResponse, error) {
	return f(ctx, method, rawURL, header, body)
}

// TransportResponse is the raw outcome of a Transport exchange.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Response is the decoded envelope returned by the Executor on success. Data
// holds the JSON body decoded into generic values, not yet mapped through any
// alias table.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Data       any
}

// Object returns Data as a JSON object, or nil.
func (r *Response) Object() map[string]any {
	obj, _ := r.Data.(map[string]any)

	return obj
}

// Config represents client configuration for building an OpenStack client.
//
// # Catalog sources
//
// The service catalog is taken from the first source that is set:
//  1. Catalog: an already parsed catalog.
//  2. CatalogFile: a YAML or JSON file holding {"services": [...]}, or a raw
//     Keystone token body ({"token": {"catalog": [...]}}).
//  3. CatalogCache: a previously cached catalog for IdentityEndpoint+AuthToken.
//  4. IdentityEndpoint + AuthToken: the token is validated against
//     GET /v3/auth/tokens and the catalog embedded in the response is used.
//
// Acquiring a token is out of scope; AuthToken must already be valid.
type Config struct {
	// IdentityEndpoint: base URL of the Keystone v3 service, e.g. "https://keystone:5000".
	IdentityEndpoint string `validate:"omitempty,url"`
	// AuthToken: sent as X-Auth-Token on every request.
	AuthToken string
	// TokenExpiresAt is the token expiry when known. Requests fail locally
	// once it has passed.
	TokenExpiresAt time.Time
	// Region used when resolving service URLs from the catalog.
	Region string
	// Interface used when resolving service URLs. Defaults to "public".
	Interface string `validate:"omitempty,oneof=public internal admin"`

	Catalog      *Catalog
	CatalogFile  string
	CatalogCache *CacheConfig
	// CatalogTTL bounds how long a fetched catalog is served from CatalogCache.
	CatalogTTL time.Duration `validate:"gte=0"`

	// EndpointOverrides maps a service type (e.g. "network") to a base URL
	// that replaces the catalog lookup.
	EndpointOverrides map[string]string `validate:"dive,keys,required,endkeys,url"`

	HTTPTimeout   time.Duration `validate:"gte=0"`
	RetryMax      int           `validate:"gte=0"`
	RetryWaitMin  time.Duration `validate:"gte=0"`
	RetryWaitMax  time.Duration `validate:"gte=0"`
	Debug         bool
	Logger        Logger
	SkipTLSVerify bool
	UserAgent     string
}
