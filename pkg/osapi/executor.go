package osapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Executor binds operations to parameters, sends them through the Transport
// and turns the outcome into a Response or a structured error. It holds no
// per-call state and may be shared by many resources.
type Executor struct {
	transport    Transport
	baseURL      string
	header       http.Header
	interceptors *InterceptorChain
	logger       Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithInterceptors installs an interceptor chain run around every call.
func WithInterceptors(chain *InterceptorChain) ExecutorOption {
	return func(e *Executor) {
		e.interceptors = chain
	}
}

// WithDefaultHeaders adds headers sent with every call.
func WithDefaultHeaders(header map[string]string) ExecutorOption {
	return func(e *Executor) {
		for key, value := range header {
			e.header.Set(key, value)
		}
	}
}

// NewExecutor creates an executor issuing requests relative to baseURL.
func NewExecutor(transport Transport, baseURL string, opts ...ExecutorOption) *Executor {
	exec := &Executor{
		transport:    transport,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		header:       http.Header{},
		interceptors: NewInterceptorChain(),
		logger:       NopLogger{},
	}

	for _, opt := range opts {
		opt(exec)
	}

	return exec
}

// BaseURL returns the URL operations are resolved against.
func (e *Executor) BaseURL() string {
	return e.baseURL
}

// WithBaseURL returns a copy of the executor targeting another service.
func (e *Executor) WithBaseURL(baseURL string) *Executor {
	clone := *e
	clone.baseURL = strings.TrimSuffix(baseURL, "/")
	clone.header = e.header.Clone()

	return &clone
}

// Execute performs op with params.
func (e *Executor) Execute(ctx context.Context, op *Operation, params Params) (*Response, error) {
	return e.execute(ctx, op, params, nil)
}

// Ready reports whether the executor can send requests. Resources decoded
// without an executor, or built with a nil one, are not ready.
func (e *Executor) Ready() bool {
	return e != nil && e.transport != nil
}

func (e *Executor) execute(ctx context.Context, op *Operation, params Params, extraQuery url.Values) (*Response, error) {
	if !e.Ready() {
		return nil, precondition(operationName(op), ErrNilTransport, "")
	}

	req, target, err := e.prepare(op, params, extraQuery)
	if err != nil {
		return nil, err
	}

	return e.send(ctx, req.method, target, req.header, req.body)
}

// prepare binds op and returns the request with its absolute target URL.
func (e *Executor) prepare(op *Operation, params Params, extraQuery url.Values) (*builtRequest, string, error) {
	req, err := op.bind(params)
	if err != nil {
		return nil, "", err
	}

	for key, values := range extraQuery {
		req.query[key] = values
	}

	target := e.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	return req, target, nil
}

// Get fetches an absolute continuation URL, or a reference resolved against
// the base URL.
func (e *Executor) Get(ctx context.Context, rawURL string) (*Response, error) {
	if !e.Ready() {
		return nil, precondition("get", ErrNilTransport, "")
	}

	target, err := e.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	return e.send(ctx, MethodGet, target, http.Header{}, nil)
}

// resolve turns a continuation link into an absolute URL. Relative paths
// extend the base URL; root-relative paths replace its path.
func (e *Executor) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing continuation link %q: %w", rawURL, err)
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(e.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", e.baseURL, err)
	}

	return base.ResolveReference(ref).String(), nil
}

func operationName(op *Operation) string {
	if op == nil {
		return ""
	}

	return op.Name
}

func (e *Executor) send(ctx context.Context, method, target string, header http.Header, body []byte) (*Response, error) {
	for key, values := range e.header {
		if header.Get(key) == "" {
			header[key] = values
		}
	}

	intercepted := &InterceptedRequest{
		Method:  method,
		Path:    target,
		Headers: header,
		Body:    body,
	}

	err := e.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	raw, err := e.transport.Send(ctx, intercepted.Method, intercepted.Path, intercepted.Headers, intercepted.Body)
	if err != nil {
		transportErr := &TransportError{Method: method, URL: target, Err: err}
		_ = e.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &InterceptedResponse{Error: transportErr})

		return nil, transportErr
	}

	observed := &InterceptedResponse{
		StatusCode: raw.StatusCode,
		Headers:    raw.Header,
		Body:       raw.Body,
	}

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		remoteErr := &RemoteOperationError{
			Method:     method,
			URL:        target,
			StatusCode: raw.StatusCode,
			Body:       raw.Body,
			Header:     raw.Header,
		}
		observed.Error = remoteErr
		_ = e.interceptors.ExecuteResponseInterceptors(ctx, intercepted, observed)

		return nil, remoteErr
	}

	err = e.interceptors.ExecuteResponseInterceptors(ctx, intercepted, observed)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		Body:       raw.Body,
		Data:       e.decodeBody(method, target, raw.Body),
	}, nil
}

// decodeBody decodes a JSON body into generic values. Empty and non-JSON
// bodies yield nil; the raw bytes stay available on the Response.
func (e *Executor) decodeBody(method, target string, body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var data any

	err := decoder.Decode(&data)
	if err != nil {
		e.logger.Debug("Non-JSON response body", map[string]interface{}{
			"method": method,
			"url":    target,
			"error":  err.Error(),
		})

		return nil
	}

	return normalize(data)
}
