package osapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Static errors for err113 compliance.
var (
	ErrInvalidAlias = errors.New("invalid alias")
)

// AliasKind describes how a remote field is decoded.
type AliasKind int

const (
	// AliasScalar copies the value as-is (string, number, bool, null).
	AliasScalar AliasKind = iota
	// AliasStructure keeps an opaque JSON object or array.
	AliasStructure
	// AliasResource decodes a single nested sub-resource.
	AliasResource
	// AliasCollection decodes an array of nested sub-resources.
	AliasCollection
)

// Alias maps one remote field (or response header) onto a local attribute.
type Alias struct {
	Remote string
	// Local defaults to Remote when empty.
	Local string
	Kind  AliasKind
	// Resource is the sub-resource kind for AliasResource and AliasCollection.
	Resource *ResourceKind
	// Header aliases read Remote from the response headers instead of the body.
	Header bool
}

// AliasTable is the per-kind translation between wire names and local
// attribute names.
type AliasTable struct {
	byRemote map[string]Alias
	byHeader map[string]Alias
	byLocal  map[string]Alias
}

// NewAliasTable builds a table. Remote names must be unique per table.
func NewAliasTable(aliases ...Alias) (*AliasTable, error) {
	table := &AliasTable{
		byRemote: make(map[string]Alias, len(aliases)),
		byHeader: make(map[string]Alias),
		byLocal:  make(map[string]Alias, len(aliases)),
	}

	for _, alias := range aliases {
		if alias.Remote == "" {
			return nil, fmt.Errorf("%w: empty remote name", ErrInvalidAlias)
		}

		if alias.Local == "" {
			alias.Local = alias.Remote
		}

		if (alias.Kind == AliasResource || alias.Kind == AliasCollection) && alias.Resource == nil {
			return nil, fmt.Errorf("%w: %q has no sub-resource kind", ErrInvalidAlias, alias.Remote)
		}

		index := table.byRemote
		key := alias.Remote

		if alias.Header {
			index = table.byHeader
			key = http.CanonicalHeaderKey(alias.Remote)
		}

		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAlias, alias.Remote)
		}

		index[key] = alias
		table.byLocal[alias.Local] = alias
	}

	return table, nil
}

// MustAliasTable is like NewAliasTable but panics on error. Intended for
// package level kind declarations.
func MustAliasTable(aliases ...Alias) *AliasTable {
	table, err := NewAliasTable(aliases...)
	if err != nil {
		panic(err)
	}

	return table
}

// Lookup returns the alias for a remote body field.
func (t *AliasTable) Lookup(remote string) (Alias, bool) {
	if t == nil {
		return Alias{}, false
	}

	alias, ok := t.byRemote[remote]

	return alias, ok
}

// RemoteName returns the wire name of a local attribute.
func (t *AliasTable) RemoteName(local string) (string, bool) {
	if t == nil {
		return "", false
	}

	alias, ok := t.byLocal[local]
	if !ok || alias.Header {
		return "", false
	}

	return alias.Remote, true
}

// Decode maps a decode root through the table. Fields without an alias are
// dropped. Nested sub-resources are created detached from any executor.
func (t *AliasTable) Decode(root map[string]any) (Attributes, error) {
	return t.decode(root, nil)
}

func (t *AliasTable) decode(root map[string]any, exec *Executor) (Attributes, error) {
	attrs := make(Attributes, len(root))
	if t == nil {
		return attrs, nil
	}

	for remote, raw := range root {
		alias, ok := t.byRemote[remote]
		if !ok {
			continue
		}

		value, err := alias.decodeValue(normalize(raw), exec)
		if err != nil {
			return nil, err
		}

		attrs[alias.Local] = value
	}

	return attrs, nil
}

// decodeHeaders maps header aliases into attrs.
func (t *AliasTable) decodeHeaders(header http.Header, attrs Attributes) {
	if t == nil || len(t.byHeader) == 0 {
		return
	}

	for key, alias := range t.byHeader {
		values := header.Values(key)
		if len(values) == 0 {
			continue
		}

		attrs[alias.Local] = scalarFromHeader(values[0])
	}
}

func (a Alias) decodeValue(value any, exec *Executor) (any, error) {
	switch a.Kind {
	case AliasResource:
		if value == nil {
			return nil, nil
		}

		obj, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q: expected object, got %T", ErrUnexpectedBody, a.Remote, value)
		}

		return a.Resource.fromObject(obj, exec)
	case AliasCollection:
		if value == nil {
			return []*Resource{}, nil
		}

		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q: expected array, got %T", ErrUnexpectedBody, a.Remote, value)
		}

		out := make([]*Resource, 0, len(items))

		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: field %q[%d]: expected object, got %T", ErrUnexpectedBody, a.Remote, i, item)
			}

			sub, err := a.Resource.fromObject(obj, exec)
			if err != nil {
				return nil, err
			}

			out = append(out, sub)
		}

		return out, nil
	default:
		return value, nil
	}
}

// normalize converts json.Number values (the decoder runs with UseNumber)
// into int64 when integral and float64 otherwise.
func normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}

		f, err := v.Float64()
		if err != nil {
			return v.String()
		}

		return f
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}

		return out
	default:
		return value
	}
}

// scalarFromHeader decodes numeric and boolean header values; anything else
// stays a string.
func scalarFromHeader(value string) any {
	number := json.Number(value)
	if i, err := number.Int64(); err == nil {
		return i
	}

	switch value {
	case "True", "true":
		return true
	case "False", "false":
		return false
	}

	return value
}
