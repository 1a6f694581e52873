// Package osapi maps OpenStack style REST resources onto generic, schema
// driven Go values.
//
// # Overview
//
// A ResourceKind declares how one kind of remote entity looks on the wire: an
// AliasTable translating remote field names to local attribute names, the
// identity attributes, the supported capabilities and the Operation backing
// each of them. A Resource is one instance of a kind holding its attributes in
// an explicit map. Lifecycle calls go through an Executor, which binds the
// operation to parameters, sends it through a Transport and hands back the
// decoded body or a structured error.
//
// The service facades in the openstack package declare concrete kinds; most
// consumers start there:
//
//	cli, err := openstack.New(ctx, &osapi.Config{
//	  IdentityEndpoint: "https://keystone.example.com:5000",
//	  AuthToken:        token,
//	  Region:           "RegionOne",
//	})
//	if err != nil { log.Fatal(err) }
//
//	net, err := cli.Networking()
//	if err != nil { log.Fatal(err) }
//
//	lb := net.GetLoadBalancer("lb-1")
//	if err := lb.Retrieve(ctx); err != nil { log.Fatal(err) }
//	fmt.Println(lb.Bool("adminStateUp"))
//
// # Listing
//
// Listing operations are consumed lazily. A page is fetched only when the
// previous one has been fully consumed:
//
//	it := osapi.NewEnumerator(exec, kind).Stream(ctx, op, osapi.NewListOptions().WithLimit(50).ToParams(), nil)
//	for res, err := range it.Seq() {
//	  if err != nil { return err }
//	  fmt.Println(res.ID())
//	}
//
// Continuation follows the provider's "next" link when the operation declares
// a LinksKey, otherwise the marker of the last element. A repeated locator
// ends the sequence with a *PaginationLoopError.
//
// # Errors
//
// Local misuse (missing identity, unsupported capability, unresolved path
// placeholder) is reported as *PreconditionError before any request is sent.
// Non-2xx responses become *RemoteOperationError, transport failures
// *TransportError. Exists turns the outcome of an existence probe into a
// boolean, treating 404 as false.
//
// # Catalog
//
// Catalog.ResolveURL looks up an endpoint by service name, type, region and
// interface. The first service matching name and type wins; a miss is a plain
// false, not an error. Catalogs can be loaded from Keystone token bodies or
// files and cached in memory, NATS KV or badger through CatalogStore.
package osapi
