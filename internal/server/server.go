// Package server exposes an executor over HTTP: GET and POST requests,
// batched POST bodies, request IDs, header forwarding, CORS and GraphiQL.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
	"github.com/hanpama/graphrt/internal/executor"
	"github.com/hanpama/graphrt/internal/language"
	"github.com/hanpama/graphrt/internal/reqid"
)

// RequestIDHeader carries the request ID. An incoming value is reused.
const RequestIDHeader = "X-Request-Id"

// Handler serves one GraphQL endpoint.
type Handler struct {
	exec *executor.Executor
	opt  Options
	// forward holds the lower-cased names of MetadataHeaders.
	forward map[string]bool
}

// New creates a GraphQL HTTP handler around exec.
func New(exec *executor.Executor, opts ...Option) *Handler {
	o := defaultOptions()
	for _, f := range opts {
		f(&o)
	}
	h := &Handler{exec: exec, opt: o, forward: make(map[string]bool, len(o.MetadataHeaders))}
	for _, name := range o.MetadataHeaders {
		h.forward[strings.ToLower(name)] = true
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()
	rid, _ := reqid.FromContext(ctx)
	w.Header().Set(RequestIDHeader, rid)
	if len(h.opt.CORSOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORSOrigins)
	}

	start := time.Now()
	finish := events.HTTPFinish{Method: r.Method, Path: r.URL.Path, Status: http.StatusOK}
	eventbus.Publish(ctx, events.HTTPStart{Method: r.Method, Path: r.URL.Path})
	defer func() {
		finish.Duration = time.Since(start)
		eventbus.Publish(ctx, finish)
	}()

	switch {
	case r.Method == http.MethodOptions:
		finish.Status = http.StatusNoContent
		w.WriteHeader(finish.Status)
		return
	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		finish.Status = http.StatusMethodNotAllowed
		writeJSON(w, finish.Status, rejection("method not allowed"), h.opt.Pretty)
		return
	case r.Method == http.MethodGet && h.opt.GraphiQL && r.URL.Query().Get("query") == "" && acceptsHTML(r.Header.Get("Accept")):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	reqs, batch, err := decodeRequest(w, r, h.opt.MaxBodyBytes)
	if err != nil {
		finish.Status = http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			finish.Status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, finish.Status, rejection(err.Error()), h.opt.Pretty)
		return
	}

	finish.Operations = len(reqs)
	results := make([]any, len(reqs))
	for i, req := range reqs {
		results[i] = h.execute(ctx, req)
	}
	if batch {
		writeJSON(w, finish.Status, results, h.opt.Pretty)
		return
	}
	writeJSON(w, finish.Status, results[0], h.opt.Pretty)
}

// requestContext derives the execution context of r: default deadline,
// request ID, forwarded metadata and caller identity.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
	}

	var rid string
	if rid = r.Header.Get(RequestIDHeader); rid != "" {
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, rid = reqid.NewContext(ctx)
	}

	md := metadata.Pairs(reqid.MetadataKey, rid)
	for name, values := range r.Header {
		if key := strings.ToLower(name); h.forward[key] {
			md.Append(key, values...)
		}
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	if h.opt.Caller != nil {
		ctx = executor.WithCaller(ctx, h.opt.Caller(r))
	}
	return ctx, cancel
}

// execute runs one operation. Documents that fail to parse are answered
// without data, as are operations the executor rejects before running them.
func (h *Handler) execute(ctx context.Context, req GraphQLRequest) any {
	doc, err := h.opt.Documents.Query(req.Query)
	if err != nil {
		var lerr *language.Error
		if errors.As(err, &lerr) {
			return requestErrors(lerr)
		}
		return rejection(err.Error())
	}

	opType := ""
	if op := selectOperation(doc, req.OperationName); op != nil {
		opType = string(op.Operation)
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, h.opt.RootValue)
	errs := make([]error, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Aborted:       result.Aborted,
		Duration:      time.Since(start),
	})
	return result
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(name)
}
