package osapi

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/gorilla/schema"
)

var (
	queryEncoder = schema.NewEncoder()
	queryDecoder = schema.NewDecoder()
)

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// ListOptions are the paging and filtering knobs shared by OpenStack listing
// endpoints. Zero values are omitted from the query string.
type ListOptions struct {
	Limit     int    `schema:"limit,omitempty"`
	Marker    string `schema:"marker,omitempty"`
	EndMarker string `schema:"end_marker,omitempty"`
	Prefix    string `schema:"prefix,omitempty"`
	SortKey   string `schema:"sort_key,omitempty"`
	SortDir   string `schema:"sort_dir,omitempty"`
	Format    string `schema:"format,omitempty"`

	// Filters are service specific equality filters such as name=web.
	Filters map[string]string `schema:"-"`
}

// NewListOptions creates empty list options.
func NewListOptions() *ListOptions {
	return &ListOptions{
		Filters: make(map[string]string),
	}
}

// ParseListOptions reads list options from a query string. Keys that are not
// known options become filters.
func ParseListOptions(values url.Values) (*ListOptions, error) {
	opts := NewListOptions()

	err := queryDecoder.Decode(opts, values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode list options: %w", err)
	}

	known := map[string]struct{}{}
	for key := range opts.ToValues() {
		known[key] = struct{}{}
	}

	for key, vals := range values {
		if _, ok := known[key]; ok || len(vals) == 0 {
			continue
		}

		opts.Filters[key] = vals[0]
	}

	return opts, nil
}

// WithLimit sets the page size.
func (o *ListOptions) WithLimit(limit int) *ListOptions {
	o.Limit = limit

	return o
}

// WithMarker starts listing after marker.
func (o *ListOptions) WithMarker(marker string) *ListOptions {
	o.Marker = marker

	return o
}

// WithPrefix restricts names to prefix.
func (o *ListOptions) WithPrefix(prefix string) *ListOptions {
	o.Prefix = prefix

	return o
}

// WithSort sets the sort key and direction.
func (o *ListOptions) WithSort(key, dir string) *ListOptions {
	o.SortKey = key
	o.SortDir = dir

	return o
}

// WithFilter adds an equality filter.
func (o *ListOptions) WithFilter(key, value string) *ListOptions {
	if o.Filters == nil {
		o.Filters = make(map[string]string)
	}

	o.Filters[key] = value

	return o
}

// ToValues encodes the options as a query string.
func (o *ListOptions) ToValues() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}

	// Encode only fails on unsupported field types, none are declared.
	_ = queryEncoder.Encode(o, values)

	keys := make([]string, 0, len(o.Filters))
	for key := range o.Filters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		values.Set(key, o.Filters[key])
	}

	return values
}

// ToParams converts the options into operation parameters. Only parameters
// declared by the listing operation are sent.
func (o *ListOptions) ToParams() Params {
	params := Params{}

	for key, vals := range o.ToValues() {
		if len(vals) == 1 {
			params[key] = vals[0]

			continue
		}

		params[key] = vals
	}

	if o != nil && o.Limit > 0 {
		params["limit"] = o.Limit
	}

	return params
}
