package server

import (
	"net/http"
	"time"

	"github.com/hanpama/graphrt/internal/language"
)

type Options struct {
	// Timeout applies when the incoming request context has no deadline.
	// Zero disables it.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits the request body. Zero means unlimited.
	MaxBodyBytes int64

	// CORSOrigins lists allowed origins; "*" allows any. Empty disables CORS.
	CORSOrigins []string

	// MetadataHeaders lists HTTP headers forwarded to outgoing gRPC metadata
	// of remote resolver calls. Names are case-insensitive.
	MetadataHeaders []string

	// GraphiQL serves the in-browser IDE to GET requests accepting HTML.
	GraphiQL bool

	// Documents caches parsed queries. Nil parses every request.
	Documents *language.DocumentCache

	// RootValue is the source of root fields without a binding.
	RootValue any

	// Caller derives the requester identity handed to resolvers and checkers.
	Caller func(*http.Request) any
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{Timeout: 10 * time.Second, GraphiQL: true}
}

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithRootValue(v any) Option         { return func(o *Options) { o.RootValue = v } }

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORSOrigins = origins }
}

func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

func WithDocumentCache(c *language.DocumentCache) Option {
	return func(o *Options) { o.Documents = c }
}

func WithCaller(fn func(*http.Request) any) Option {
	return func(o *Options) { o.Caller = fn }
}
