package osapi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
)

// Transform maps each decoded element before it is yielded. An error ends
// the enumeration.
type Transform func(*Resource) (*Resource, error)

// Enumerator turns a paginated listing operation into a lazy sequence of
// resources of one kind.
type Enumerator struct {
	exec *Executor
	kind *ResourceKind
}

// NewEnumerator creates an enumerator decoding elements as kind.
func NewEnumerator(exec *Executor, kind *ResourceKind) *Enumerator {
	return &Enumerator{exec: exec, kind: kind}
}

// Stream returns an iterator over every element of op. No request is made
// until the iterator is first consumed. Call Stream again to restart.
func (e *Enumerator) Stream(ctx context.Context, op *Operation, params Params, transform Transform) *Iterator {
	if op == nil {
		return failedIterator(precondition(e.kind.Name+".list", ErrNoOperation, ""))
	}

	if !e.exec.Ready() {
		return failedIterator(precondition(op.Name, ErrNilTransport, ""))
	}

	it := &Iterator{
		ctx:       ctx,
		enum:      e,
		op:        op,
		params:    params,
		transform: transform,
		seen:      map[string]struct{}{},
		limit:     intParam(params, "limit"),
	}

	if marker, ok := params["marker"].(string); ok && marker != "" {
		it.seen["marker:"+marker] = struct{}{}
	}

	return it
}

// Iterator yields resources one at a time, fetching a page only when the
// previous one is fully consumed. It holds at most one page and is not safe
// for concurrent use.
type Iterator struct {
	ctx       context.Context
	enum      *Enumerator
	op        *Operation
	params    Params
	transform Transform

	buffer []*Resource
	index  int

	started bool
	done    bool
	nextURL string
	marker  string
	seen    map[string]struct{}
	limit   int
	pages   int

	err          error
	errDelivered bool
}

func failedIterator(err error) *Iterator {
	return &Iterator{err: err, done: true, started: true}
}

// HasNext reports whether Next will yield an element or a pending error. It
// fetches the next page when the current one is exhausted.
func (it *Iterator) HasNext() bool {
	if it.err != nil {
		return !it.errDelivered
	}

	if it.index < len(it.buffer) {
		return true
	}

	if it.done {
		return false
	}

	it.fill()

	if it.err != nil {
		return true
	}

	return it.index < len(it.buffer)
}

// Next returns the next resource, or ErrNoMoreItems once the sequence ends.
func (it *Iterator) Next() (*Resource, error) {
	if it.err != nil {
		it.errDelivered = true

		return nil, it.err
	}

	if it.index >= len(it.buffer) && !it.done {
		it.fill()

		if it.err != nil {
			it.errDelivered = true

			return nil, it.err
		}
	}

	if it.index >= len(it.buffer) {
		return nil, ErrNoMoreItems
	}

	res := it.buffer[it.index]
	it.buffer[it.index] = nil
	it.index++

	if it.transform == nil {
		return res, nil
	}

	out, err := it.transform(res)
	if err != nil {
		it.fail(err)
		it.errDelivered = true

		return nil, err
	}

	return out, nil
}

// All drains the iterator.
func (it *Iterator) All() ([]*Resource, error) {
	var all []*Resource

	for {
		res, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			return all, nil
		}

		if err != nil {
			return all, err
		}

		all = append(all, res)
	}
}

// ForEach calls fn for every element until fn or the iterator fails.
func (it *Iterator) ForEach(fn func(*Resource) error) error {
	for {
		res, err := it.Next()
		if errors.Is(err, ErrNoMoreItems) {
			return nil
		}

		if err != nil {
			return err
		}

		err = fn(res)
		if err != nil {
			return err
		}
	}
}

// Seq adapts the iterator to a range-over-func sequence. A failure is yielded
// once as the final pair.
func (it *Iterator) Seq() iter.Seq2[*Resource, error] {
	return func(yield func(*Resource, error) bool) {
		for {
			res, err := it.Next()
			if errors.Is(err, ErrNoMoreItems) {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(res, nil) {
				return
			}
		}
	}
}

// Err returns the error that ended the enumeration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Pages returns the number of pages fetched so far.
func (it *Iterator) Pages() int {
	return it.pages
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.done = true
	it.buffer = nil
	it.index = 0
}

// fill fetches the next page into the buffer, replacing the previous one.
func (it *Iterator) fill() {
	for !it.done {
		resp, err := it.fetch()
		if err != nil {
			it.fail(err)

			return
		}

		items, data, err := it.decodePage(resp)
		if err != nil {
			it.fail(err)

			return
		}

		it.pages++
		it.buffer = items
		it.index = 0
		it.advance(items, data)

		it.enum.exec.logger.Debug("Fetched page", map[string]interface{}{
			"kind":  it.enum.kind.Name,
			"page":  it.pages,
			"items": len(items),
		})

		if len(items) > 0 {
			return
		}
	}
}

func (it *Iterator) fetch() (*Response, error) {
	exec := it.enum.exec

	if !it.started {
		it.started = true

		if it.op.LinksKey == "" {
			return exec.execute(it.ctx, it.op, it.params, nil)
		}

		req, target, err := exec.prepare(it.op, it.params, nil)
		if err != nil {
			return nil, err
		}

		it.seen["link:"+canonicalLocator(target)] = struct{}{}

		return exec.send(it.ctx, req.method, target, req.header, req.body)
	}

	if it.nextURL != "" {
		target, err := exec.resolve(it.nextURL)
		if err != nil {
			return nil, err
		}

		err = it.visit("link:"+canonicalLocator(target), it.nextURL)
		if err != nil {
			return nil, err
		}

		return exec.Get(it.ctx, target)
	}

	err := it.visit("marker:"+it.marker, it.marker)
	if err != nil {
		return nil, err
	}

	return exec.execute(it.ctx, it.op, it.params, url.Values{"marker": {it.marker}})
}

// canonicalLocator normalises query parameter order so equal links compare
// equal.
func canonicalLocator(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}

	u.RawQuery = u.Query().Encode()
	u.Fragment = ""

	return u.String()
}

func (it *Iterator) visit(key, locator string) error {
	if _, ok := it.seen[key]; ok {
		return &PaginationLoopError{Locator: locator, Page: it.pages + 1}
	}

	it.seen[key] = struct{}{}

	return nil
}

// advance derives the next locator from the page just read, or marks the
// sequence done.
func (it *Iterator) advance(items []*Resource, data any) {
	it.nextURL = ""
	it.marker = ""

	if len(items) == 0 {
		it.done = true

		return
	}

	if it.op.LinksKey != "" {
		it.nextURL = nextLink(data, it.op.LinksKey)
		if it.nextURL == "" {
			it.done = true
		}

		return
	}

	if it.limit > 0 && len(items) < it.limit {
		it.done = true

		return
	}

	last, ok := items[len(items)-1].Get(it.op.marker())
	if !ok || isBlank(last) {
		it.done = true

		return
	}

	it.marker = formatValue(last)
}

// decodePage extracts the collection at ResponsesKey, or the whole body when
// it is a bare array.
func (it *Iterator) decodePage(resp *Response) ([]*Resource, any, error) {
	var raw []any

	switch data := resp.Data.(type) {
	case nil:
	case []any:
		raw = data
	case map[string]any:
		value, ok := data[it.op.ResponsesKey]
		if !ok || value == nil {
			break
		}

		list, ok := value.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q is %T, not an array", ErrUnexpectedBody, it.op.ResponsesKey, value)
		}

		raw = list
	default:
		return nil, nil, fmt.Errorf("%w: listing %s returned %T", ErrUnexpectedBody, it.enum.kind.Name, resp.Data)
	}

	items := make([]*Resource, 0, len(raw))

	for i, element := range raw {
		obj, ok := element.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("%w: element %d is %T, not an object", ErrUnexpectedBody, i, element)
		}

		res, err := it.enum.kind.fromObject(obj, it.enum.exec)
		if err != nil {
			return nil, nil, err
		}

		items = append(items, res)
	}

	return items, resp.Data, nil
}

// nextLink reads a continuation link in either the [{"rel":"next","href":...}]
// or the {"next": "..."} convention.
func nextLink(data any, linksKey string) string {
	obj, ok := data.(map[string]any)
	if !ok {
		return ""
	}

	switch links := obj[linksKey].(type) {
	case []any:
		for _, entry := range links {
			link, ok := entry.(map[string]any)
			if !ok {
				continue
			}

			if link["rel"] == "next" {
				href, _ := link["href"].(string)

				return href
			}
		}
	case map[string]any:
		href, _ := links["next"].(string)

		return href
	}

	return ""
}

func intParam(params Params, name string) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)

		return n
	default:
		return 0
	}
}
