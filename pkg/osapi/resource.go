package osapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Capability is a lifecycle operation a resource kind may support.
type Capability uint8

const (
	CapCreate Capability = 1 << iota
	CapRetrieve
	CapUpdate
	CapDelete
	CapList
)

// Has reports whether every capability in other is present in c.
func (c Capability) Has(other Capability) bool {
	return other != 0 && c&other == other
}

// String returns the capability names joined with "|".
func (c Capability) String() string {
	names := []string{}

	for _, entry := range []struct {
		cap  Capability
		name string
	}{
		{CapCreate, "create"},
		{CapRetrieve, "retrieve"},
		{CapUpdate, "update"},
		{CapDelete, "delete"},
		{CapList, "list"},
	} {
		if c&entry.cap != 0 {
			names = append(names, entry.name)
		}
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, "|")
}

// ResourceKind is the static schema of one kind of remote entity: its alias
// table, identifying attributes, supported capabilities and the operation
// backing each capability.
type ResourceKind struct {
	Name         string
	Aliases      *AliasTable
	Identity     []string
	Capabilities Capability
	Operations   map[Capability]*Operation
	// Mutable lists the attributes sent by Update. When empty every attribute
	// declared as a parameter of the update operation is sent.
	Mutable []string
}

// New constructs a resource of this kind bound to exec.
func (k *ResourceKind) New(exec *Executor, initial Attributes) *Resource {
	attrs := make(Attributes, len(initial))
	for name, value := range initial {
		attrs[name] = value
	}

	return &Resource{kind: k, exec: exec, attrs: attrs}
}

// Operation returns the operation backing capability.
func (k *ResourceKind) Operation(capability Capability) (*Operation, error) {
	opName := k.Name + "." + capability.String()

	if !k.Capabilities.Has(capability) {
		return nil, precondition(opName, ErrUnsupportedCapability, "")
	}

	op, ok := k.Operations[capability]
	if !ok || op == nil {
		return nil, precondition(opName, ErrNoOperation, "")
	}

	return op, nil
}

// Enumerate streams every entity of this kind from its list operation.
func (k *ResourceKind) Enumerate(ctx context.Context, exec *Executor, params Params, transform Transform) *Iterator {
	op, err := k.Operation(CapList)
	if err != nil {
		return failedIterator(err)
	}

	return NewEnumerator(exec, k).Stream(ctx, op, params, transform)
}

func (k *ResourceKind) fromObject(obj map[string]any, exec *Executor) (*Resource, error) {
	attrs, err := k.Aliases.decode(obj, exec)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", k.Name, err)
	}

	return &Resource{kind: k, exec: exec, attrs: attrs}, nil
}

// Resource is a mutable, identity-bearing entity populated from API
// responses. A Resource is owned by its creator and is not safe for
// concurrent use.
type Resource struct {
	kind  *ResourceKind
	exec  *Executor
	attrs Attributes
}

// Kind returns the resource kind.
func (r *Resource) Kind() *ResourceKind {
	return r.kind
}

// Get returns the value of a local attribute.
func (r *Resource) Get(name string) (any, bool) {
	value, ok := r.attrs[name]

	return value, ok
}

// Set assigns a local attribute.
func (r *Resource) Set(name string, value any) {
	r.attrs[name] = value
}

// String returns a string attribute, or "" when absent or of another type.
func (r *Resource) String(name string) string {
	s, _ := r.attrs[name].(string)

	return s
}

// Bool returns a boolean attribute.
func (r *Resource) Bool(name string) bool {
	b, _ := r.attrs[name].(bool)

	return b
}

// Int returns an integral attribute.
func (r *Resource) Int(name string) int64 {
	switch v := r.attrs[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Resources returns a nested sub-resource collection.
func (r *Resource) Resources(name string) []*Resource {
	items, _ := r.attrs[name].([]*Resource)

	return items
}

// Nested returns a single nested sub-resource.
func (r *Resource) Nested(name string) *Resource {
	res, _ := r.attrs[name].(*Resource)

	return res
}

// Attributes returns a copy of the attribute bag.
func (r *Resource) Attributes() Attributes {
	out := make(Attributes, len(r.attrs))
	for name, value := range r.attrs {
		out[name] = value
	}

	return out
}

// MarshalJSON encodes the attribute bag under local names.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.attrs)
}

// MarshalYAML encodes the attribute bag under local names.
func (r *Resource) MarshalYAML() (any, error) {
	return map[string]any(r.attrs), nil
}

// ID returns the first identity attribute rendered as a string.
func (r *Resource) ID() string {
	if len(r.kind.Identity) == 0 {
		return ""
	}

	value, ok := r.attrs[r.kind.Identity[0]]
	if !ok || value == nil {
		return ""
	}

	return formatValue(value)
}

// HasIdentity reports whether every identity attribute is set.
func (r *Resource) HasIdentity() bool {
	if len(r.kind.Identity) == 0 {
		return false
	}

	for _, name := range r.kind.Identity {
		if isBlank(r.attrs[name]) {
			return false
		}
	}

	return true
}

// Model spawns a related resource sharing this resource's executor.
func (r *Resource) Model(kind *ResourceKind, initial Attributes) *Resource {
	return kind.New(r.exec, initial)
}

// Create issues the kind's create operation with params and populates the
// resource from the response.
func (r *Resource) Create(ctx context.Context, params Params) (*Resource, error) {
	op, err := r.kind.Operation(CapCreate)
	if err != nil {
		return nil, err
	}

	resp, err := r.exec.Execute(ctx, op, params)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", r.kind.Name, err)
	}

	err = r.Populate(resp, op.ResponseKey)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Retrieve reads the entity addressed by the resource identity and overwrites
// the attributes present in the response.
func (r *Resource) Retrieve(ctx context.Context) error {
	op, err := r.identityOperation(CapRetrieve)
	if err != nil {
		return err
	}

	resp, err := r.exec.Execute(ctx, op, r.stateParams(op, nil))
	if err != nil {
		return fmt.Errorf("retrieving %s %s: %w", r.kind.Name, r.ID(), err)
	}

	return r.Populate(resp, op.ResponseKey)
}

// Update sends the mutable attributes to the update operation and refreshes
// the resource from the response.
func (r *Resource) Update(ctx context.Context) error {
	op, err := r.identityOperation(CapUpdate)
	if err != nil {
		return err
	}

	resp, err := r.exec.Execute(ctx, op, r.stateParams(op, r.kind.Mutable))
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", r.kind.Name, r.ID(), err)
	}

	return r.Populate(resp, op.ResponseKey)
}

// Delete removes the remote entity. The resource must not be used for
// further identity-addressed calls afterwards.
func (r *Resource) Delete(ctx context.Context) error {
	op, err := r.identityOperation(CapDelete)
	if err != nil {
		return err
	}

	_, err = r.exec.Execute(ctx, op, r.stateParams(op, nil))
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", r.kind.Name, r.ID(), err)
	}

	return nil
}

// ExecuteWithState runs an arbitrary operation with the resource state merged
// under extra. The response is returned undecoded.
func (r *Resource) ExecuteWithState(ctx context.Context, op *Operation, extra Params) (*Response, error) {
	return r.exec.Execute(ctx, op, r.stateParams(op, nil).Merge(extra))
}

// Populate decodes a response into the resource. The body is unwrapped at
// responseKey when present. Nothing is assigned unless the whole body decodes.
func (r *Resource) Populate(resp *Response, responseKey string) error {
	root := map[string]any{}

	switch data := resp.Data.(type) {
	case nil:
	case map[string]any:
		root = data
		if responseKey != "" {
			if inner, ok := data[responseKey].(map[string]any); ok {
				root = inner
			}
		}
	default:
		return fmt.Errorf("%w: %s expects an object, got %T", ErrUnexpectedBody, r.kind.Name, resp.Data)
	}

	scratch, err := r.kind.Aliases.decode(root, r.exec)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", r.kind.Name, err)
	}

	r.kind.Aliases.decodeHeaders(resp.Header, scratch)

	for name, value := range scratch {
		r.attrs[name] = value
	}

	return nil
}

func (r *Resource) identityOperation(capability Capability) (*Operation, error) {
	op, err := r.kind.Operation(capability)
	if err != nil {
		return nil, err
	}

	if !r.HasIdentity() {
		return nil, precondition(op.Name, ErrMissingIdentity, strings.Join(r.kind.Identity, ","))
	}

	return op, nil
}

// stateParams collects the attributes addressed by op: path placeholders,
// identity and, when only is empty, every declared parameter; otherwise the
// declared parameters listed in only.
func (r *Resource) stateParams(op *Operation, only []string) Params {
	params := Params{}

	take := func(name string) {
		if value, ok := r.attrs[name]; ok && value != nil {
			params[name] = value
		}
	}

	for _, name := range op.Placeholders() {
		take(name)
	}

	for _, name := range r.kind.Identity {
		take(name)
	}

	if len(only) == 0 {
		for name := range op.Params {
			take(name)
		}

		return params
	}

	for _, name := range only {
		if _, declared := op.Params[name]; declared {
			take(name)
		}
	}

	return params
}

// wireObject renders the resource back into wire field names.
func (r *Resource) wireObject() map[string]any {
	out := make(map[string]any, len(r.attrs))

	for name, value := range r.attrs {
		remote, ok := r.kind.Aliases.RemoteName(name)
		if !ok {
			continue
		}

		out[remote] = encodeValue(value)
	}

	return out
}
