package osapi_test

import (
	"net/url"
	"testing"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOptions_ToValues(t *testing.T) {
	t.Parallel()

	opts := osapi.NewListOptions().
		WithLimit(50).
		WithMarker("lb-9").
		WithPrefix("web").
		WithSort("name", "asc").
		WithFilter("provisioning_status", "ACTIVE")

	values := opts.ToValues()
	assert.Equal(t, "50", values.Get("limit"))
	assert.Equal(t, "lb-9", values.Get("marker"))
	assert.Equal(t, "web", values.Get("prefix"))
	assert.Equal(t, "name", values.Get("sort_key"))
	assert.Equal(t, "asc", values.Get("sort_dir"))
	assert.Equal(t, "ACTIVE", values.Get("provisioning_status"))
	assert.NotContains(t, values, "end_marker")
	assert.NotContains(t, values, "format")

	params := opts.ToParams()
	assert.Equal(t, 50, params["limit"])
	assert.Equal(t, "lb-9", params["marker"])

	var nilOpts *osapi.ListOptions

	assert.Empty(t, nilOpts.ToValues())
	assert.Empty(t, osapi.NewListOptions().ToParams())
}

func TestParseListOptions(t *testing.T) {
	t.Parallel()

	opts, err := osapi.ParseListOptions(url.Values{
		"limit":  {"10"},
		"format": {"json"},
		"name":   {"web"},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, map[string]string{"name": "web"}, opts.Filters)

	_, err = osapi.ParseListOptions(url.Values{"limit": {"ten"}})
	require.Error(t, err)
}
