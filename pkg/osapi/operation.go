package osapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// HTTP verbs accepted by an Operation.
const (
	MethodGet    = http.MethodGet
	MethodHead   = http.MethodHead
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodPatch  = http.MethodPatch
	MethodDelete = http.MethodDelete
)

// ParamLocation says where a parameter travels in the request.
type ParamLocation int

const (
	// ParamURL parameters fill a {placeholder} of the path template.
	ParamURL ParamLocation = iota
	// ParamQuery parameters are appended to the query string.
	ParamQuery
	// ParamJSON parameters become fields of the JSON request body.
	ParamJSON
	// ParamHeader parameters are sent as request headers.
	ParamHeader
)

// Param describes one expected request parameter.
type Param struct {
	Location ParamLocation
	// SentAs is the wire name; the parameter name is used when empty.
	SentAs   string
	Required bool
}

func (p Param) wireName(name string) string {
	if p.SentAs != "" {
		return p.SentAs
	}

	return name
}

// Operation is the static definition of one remote API call. Operations are
// declared once per resource kind and shared read-only by every instance.
type Operation struct {
	Name   string
	Method string
	// Path is a template such as "/v2.0/lbaas/loadbalancers/{id}".
	Path   string
	Params map[string]Param

	// JSONKey wraps the JSON body parameters: {"<JSONKey>": {...}}.
	JSONKey string
	// ResponseKey holds the single entity in the response body.
	ResponseKey string
	// ResponsesKey holds the collection in a listing response body.
	ResponsesKey string
	// MarkerKey names the local attribute used as the next "marker" when the
	// provider paginates by marker. Defaults to "id".
	MarkerKey string
	// LinksKey holds provider continuation links ([{"rel":"next","href":...}]).
	LinksKey string
}

var validMethods = map[string]struct{}{
	MethodGet:    {},
	MethodHead:   {},
	MethodPost:   {},
	MethodPut:    {},
	MethodPatch:  {},
	MethodDelete: {},
}

// Validate checks the method and the path template.
func (o *Operation) Validate() error {
	if o == nil {
		return precondition("", ErrNoOperation, "")
	}

	if _, ok := validMethods[o.Method]; !ok {
		return precondition(o.Name, ErrInvalidMethod, o.Method)
	}

	return nil
}

// Placeholders returns the named placeholders of the path template in order.
func (o *Operation) Placeholders() []string {
	var names []string

	for _, seg := range parsePath(o.Path) {
		if seg.placeholder != "" {
			names = append(names, seg.placeholder)
		}
	}

	return names
}

// marker returns the attribute used for marker pagination.
func (o *Operation) marker() string {
	if o.MarkerKey != "" {
		return o.MarkerKey
	}

	return "id"
}

type pathSegment struct {
	literal     string
	placeholder string
}

// parsePath splits a template into literal and placeholder segments. An
// unterminated "{" is kept as literal text.
func parsePath(template string) []pathSegment {
	var segments []pathSegment

	rest := template
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			segments = append(segments, pathSegment{literal: rest})

			break
		}

		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			segments = append(segments, pathSegment{literal: rest})

			break
		}

		if open > 0 {
			segments = append(segments, pathSegment{literal: rest[:open]})
		}

		segments = append(segments, pathSegment{placeholder: rest[open+1 : open+closing]})
		rest = rest[open+closing+1:]
	}

	return segments
}

// builtRequest is an Operation bound to concrete parameters.
type builtRequest struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

// bind substitutes placeholders and distributes the declared parameters over
// query, headers and JSON body. Parameters absent from the schema are ignored.
func (o *Operation) bind(params Params) (*builtRequest, error) {
	err := o.Validate()
	if err != nil {
		return nil, err
	}

	var path strings.Builder

	for _, seg := range parsePath(o.Path) {
		if seg.placeholder == "" {
			path.WriteString(seg.literal)

			continue
		}

		value, ok := params[seg.placeholder]
		if !ok || isBlank(value) {
			return nil, precondition(o.Name, ErrUnresolvedPlaceholder, "{"+seg.placeholder+"}")
		}

		path.WriteString(url.PathEscape(formatValue(value)))
	}

	req := &builtRequest{
		method: o.Method,
		path:   path.String(),
		query:  url.Values{},
		header: http.Header{},
	}

	fields := map[string]any{}

	for _, name := range sortedParamNames(o.Params) {
		spec := o.Params[name]
		if spec.Location == ParamURL {
			continue
		}

		value, ok := params[name]
		if !ok || value == nil {
			if spec.Required {
				return nil, precondition(o.Name, ErrMissingParameter, name)
			}

			continue
		}

		wire := spec.wireName(name)

		switch spec.Location {
		case ParamQuery:
			addQuery(req.query, wire, value)
		case ParamHeader:
			req.header.Set(wire, formatValue(value))
		case ParamJSON:
			fields[wire] = encodeValue(value)
		}
	}

	if len(fields) > 0 || (o.JSONKey != "" && methodHasBody(o.Method)) {
		var payload any = fields
		if o.JSONKey != "" {
			payload = map[string]any{o.JSONKey: fields}
		}

		req.body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request body: %w", o.Name, err)
		}
	}

	return req, nil
}

func sortedParamNames(params map[string]Param) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func methodHasBody(method string) bool {
	return method == MethodPost || method == MethodPut || method == MethodPatch
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}

	s, ok := value.(string)

	return ok && s == ""
}

func addQuery(query url.Values, key string, value any) {
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			query.Add(key, item)
		}
	case []any:
		for _, item := range v {
			query.Add(key, formatValue(item))
		}
	default:
		query.Add(key, formatValue(value))
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// encodeValue converts nested resources back into plain JSON values.
func encodeValue(value any) any {
	switch v := value.(type) {
	case *Resource:
		return v.wireObject()
	case []*Resource:
		out := make([]any, 0, len(v))
		for _, res := range v {
			out = append(out, res.wireObject())
		}

		return out
	default:
		return value
	}
}
