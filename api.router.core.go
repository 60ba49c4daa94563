package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	profilerPathPrefix = "/ops/debug/pprof/"
	timeoutMessage     = `{"message":"Timeout. Processing taking too long. Please reach out to support."}`
)

// SetupRoutes injects book and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = api.NotFound()
	api.SetupBookRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	return router
}

// WithRequestTimeout wraps the handler with the default http timeout handler.
// Profiler requests bypass it since they last as long as the caller asks.
func WithRequestTimeout(h http.Handler, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		return h
	}
	th := http.TimeoutHandler(h, timeout, timeoutMessage)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, profilerPathPrefix) {
			h.ServeHTTP(w, r)
			return
		}
		th.ServeHTTP(w, r)
	})
}
