// Package openstack is the entry point for constructing an OpenStack client
// exposing the Identity v3, Networking v2 and Object Store v1 facades.
//
// It layers configuration, catalog discovery and caching, HTTP transport and
// authentication on top of the generic resource mapping in the osapi
// package. Most applications build a client here and then use the facades:
//
//	ctx := context.Background()
//
//	// Validate a token you already have and read the catalog from Keystone.
//	cli, err := openstack.NewWithToken(ctx, "https://keystone.example.com:5000", token, "RegionOne")
//	if err != nil { log.Fatal(err) }
//
//	store, err := cli.ObjectStore()
//	if err != nil { log.Fatal(err) }
//
//	it := store.ListContainers(ctx, osapi.NewListOptions().WithLimit(100), nil)
//	for container, err := range it.Seq() {
//	  if err != nil { log.Fatal(err) }
//	  fmt.Println(container.String("name"), container.Int("objectCount"))
//	}
//
// # Catalog sources
//
// The catalog is taken from Config.Catalog, then Config.CatalogFile, then
// the catalog cache (Config.CatalogCache or WithCatalogStore) and finally
// GET /v3/auth/tokens on Config.IdentityEndpoint. Catalogs fetched from
// Keystone are written back to the cache, keyed by endpoint and a hash of the
// token:
//
//	cli, err := openstack.New(ctx, &osapi.Config{
//	  IdentityEndpoint: "https://keystone.example.com:5000",
//	  AuthToken:        token,
//	  Region:           "RegionOne",
//	  CatalogCache: &osapi.CacheConfig{
//	    Type:   osapi.CacheTypeBadger,
//	    Badger: &osapi.BadgerCacheConfig{Path: "/var/cache/osc"},
//	  },
//	})
//
// Services missing from the catalog are not an error at construction time;
// the matching accessor reports osapi.ErrServiceUnavailable. Endpoints can
// be pinned per service type with Config.EndpointOverrides.
//
// Token acquisition is out of scope: AuthToken must already be valid.
//
// # Helpers
//
// NewWithToken and NewWithCatalog wrap New for the two common setups. The
// catalog fetch is available on its own as FetchCatalog. Clients built with
// WithRateLimit own a background limiter; call Close when done with them.
package openstack
