// Package middleware composes the dev server's HTTP middleware stack.
//
// Middlewares run in the order they were added: the first one added is the
// outermost wrapper, so a request flows A -> B -> C -> handler and the
// response flows back the other way.
package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/conneroisu/bundlekit/internal/logging"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain is an ordered middleware stack. Apply does not modify it and is
// safe for concurrent use.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a chain from middlewares, outermost first.
func NewChain(middlewares ...Middleware) *Chain {
	c := &Chain{middlewares: make([]Middleware, 0, len(middlewares))}
	for _, m := range middlewares {
		c.Add(m)
	}
	return c
}

// Add appends m inside the middlewares already added. Nil is ignored.
func (c *Chain) Add(m Middleware) {
	if m == nil {
		return
	}
	c.middlewares = append(c.middlewares, m)
}

// Len returns the number of middlewares.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Apply wraps handler with every middleware in the chain.
//
// Panics if handler is nil or a middleware returns nil.
func (c *Chain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("Chain.Apply: handler cannot be nil")
	}

	wrapped := handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		wrapped = c.middlewares[i](wrapped)
		if wrapped == nil {
			panic(fmt.Sprintf("Chain.Apply: middleware at index %d returned nil handler", i))
		}
	}
	return wrapped
}

// Logging logs every request at debug level with its status and duration.
func Logging(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Debug(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// Recover turns a handler panic into a 500 and logs it.
func Recover(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error(r.Context(), fmt.Errorf("%v", v), "handler panicked",
						"method", r.Method, "path", r.URL.Path)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// OriginValidator decides whether a cross-origin request is allowed.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// CORS echoes allowed origins back and answers preflight requests. Requests
// from other origins get no CORS headers, so browsers block them.
func CORS(validator OriginValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && validator != nil && validator.IsAllowedOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NoCache stops browsers from caching development builds.
func NoCache() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status. It keeps Hijack and Flush
// working so websocket upgrades pass through.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
