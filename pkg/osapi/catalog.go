package osapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"gopkg.in/yaml.v3"
)

// Catalog is a service catalog as handed out by the identity service.
// Service order is significant: resolution returns the first match.
type Catalog struct {
	Services []CatalogService `json:"services" yaml:"services" validate:"dive"`
}

// CatalogService is one catalog entry with its endpoints.
type CatalogService struct {
	ID        string            `json:"id,omitempty"   yaml:"id,omitempty"`
	Name      string            `json:"name"           yaml:"name"`
	Type      string            `json:"type"           yaml:"type"           validate:"required"`
	Endpoints []CatalogEndpoint `json:"endpoints"      yaml:"endpoints"      validate:"dive"`
}

// CatalogEndpoint is a regional, interface specific URL of a service.
type CatalogEndpoint struct {
	ID        string `json:"id,omitempty"        yaml:"id,omitempty"`
	Region    string `json:"region"              yaml:"region"`
	RegionID  string `json:"region_id,omitempty" yaml:"region_id,omitempty"`
	Interface string `json:"interface"           yaml:"interface" validate:"required,oneof=public internal admin"`
	URL       string `json:"url"                 yaml:"url"       validate:"required,url"`
}

// ResolveURL returns the URL of the first endpoint matching region and iface
// in the first service matching name and typ. Only that first service is
// consulted; a miss is reported with ok == false.
func (c *Catalog) ResolveURL(name, typ, region, iface string) (string, bool) {
	if c == nil {
		return "", false
	}

	for i := range c.Services {
		service := &c.Services[i]
		if !service.NameMatches(name) || !service.TypeMatches(typ) {
			continue
		}

		return service.endpointURL(region, iface)
	}

	return "", false
}

// ServiceTypes returns the distinct service types in catalog order.
func (c *Catalog) ServiceTypes() []string {
	if c == nil {
		return nil
	}

	seen := map[string]struct{}{}

	var types []string

	for _, service := range c.Services {
		if _, ok := seen[service.Type]; ok {
			continue
		}

		seen[service.Type] = struct{}{}
		types = append(types, service.Type)
	}

	return types
}

// FindByType returns the first service of type typ regardless of name.
func (c *Catalog) FindByType(typ string) (*CatalogService, bool) {
	if c == nil || typ == "" {
		return nil, false
	}

	for i := range c.Services {
		if c.Services[i].Type == typ {
			return &c.Services[i], true
		}
	}

	return nil, false
}

// NameMatches reports whether the service is called name. An empty name
// never matches.
func (s *CatalogService) NameMatches(name string) bool {
	return name != "" && s.Name == name
}

// TypeMatches reports whether the service has type typ. An empty type never
// matches.
func (s *CatalogService) TypeMatches(typ string) bool {
	return typ != "" && s.Type == typ
}

// URL returns the endpoint URL when this service matches name and typ and has
// an endpoint for region and iface.
func (s *CatalogService) URL(name, typ, region, iface string) (string, bool) {
	if !s.NameMatches(name) || !s.TypeMatches(typ) {
		return "", false
	}

	return s.endpointURL(region, iface)
}

func (s *CatalogService) endpointURL(region, iface string) (string, bool) {
	for _, endpoint := range s.Endpoints {
		if endpoint.RegionMatches(region) && endpoint.InterfaceMatches(iface) {
			return endpoint.URL, true
		}
	}

	return "", false
}

// RegionMatches compares against the region name or, for v3 catalogs, the
// region id.
func (e CatalogEndpoint) RegionMatches(region string) bool {
	return e.Region == region || (e.RegionID != "" && e.RegionID == region)
}

// InterfaceMatches compares the endpoint interface.
func (e CatalogEndpoint) InterfaceMatches(iface string) bool {
	return e.Interface == iface
}

// Resolver resolves service URLs for a fixed region and interface and turns
// misses into errors for callers that cannot proceed without the endpoint.
type Resolver struct {
	catalog   *Catalog
	region    string
	iface     string
	overrides map[string]string
}

// NewResolver creates a resolver. An empty iface means "public".
func NewResolver(catalog *Catalog, region, iface string) *Resolver {
	if iface == "" {
		iface = constants.DefaultInterface
	}

	return &Resolver{catalog: catalog, region: region, iface: iface, overrides: map[string]string{}}
}

// WithOverrides pins service types to fixed URLs.
func (r *Resolver) WithOverrides(overrides map[string]string) *Resolver {
	for typ, endpoint := range overrides {
		r.overrides[typ] = endpoint
	}

	return r
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve returns the URL of service name of type typ.
func (r *Resolver) Resolve(name, typ string) (string, error) {
	if endpoint, ok := r.overrides[typ]; ok {
		return endpoint, nil
	}

	endpoint, ok := r.catalog.ResolveURL(name, typ, r.region, r.iface)
	if !ok {
		return "", fmt.Errorf("%w: name=%s type=%s region=%s interface=%s", ErrEndpointNotFound, name, typ, r.region, r.iface)
	}

	return endpoint, nil
}

// ResolveType resolves by type only, using the first service of that type.
// Deployments name services freely ("neutron", "octavia") or not at all.
func (r *Resolver) ResolveType(typ string) (string, error) {
	if endpoint, ok := r.overrides[typ]; ok {
		return endpoint, nil
	}

	service, ok := r.catalog.FindByType(typ)
	if !ok {
		return "", fmt.Errorf("%w: type=%s", ErrServiceUnavailable, typ)
	}

	endpoint, ok := service.endpointURL(r.region, r.iface)
	if !ok {
		return "", fmt.Errorf("%w: name=%s type=%s region=%s interface=%s", ErrEndpointNotFound, service.Name, typ, r.region, r.iface)
	}

	return endpoint, nil
}

// ParseTokenCatalog extracts the catalog from a Keystone v3 token body
// ({"token": {"catalog": [...]}}).
func ParseTokenCatalog(body []byte) (*Catalog, error) {
	var envelope struct {
		Token *struct {
			Catalog []CatalogService `json:"catalog"`
		} `json:"token"`
	}

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token body: %w", err)
	}

	if envelope.Token == nil {
		return nil, fmt.Errorf("%w: missing token object", ErrUnexpectedBody)
	}

	catalog := &Catalog{Services: envelope.Token.Catalog}

	err = catalog.Validate()
	if err != nil {
		return nil, err
	}

	return catalog, nil
}

// LoadCatalogFile reads a catalog from a YAML or JSON file. Both a plain
// {"services": [...]} document and a raw token body are accepted.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc struct {
		Services []CatalogService `yaml:"services"`
		Token    *struct {
			Catalog []CatalogService `yaml:"catalog"`
		} `yaml:"token"`
	}

	// YAML is a superset of JSON, one decoder serves both extensions.
	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	catalog := &Catalog{Services: doc.Services}
	if doc.Token != nil {
		catalog.Services = doc.Token.Catalog
	}

	err = catalog.Validate()
	if err != nil {
		return nil, err
	}

	return catalog, nil
}
