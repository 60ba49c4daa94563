package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// SetupOpsRoutes injects internal operations related endpoints.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/maintenance", m.ops(api.Maintenance))

	if api.config.ProfilerEndpointsEnable {
		router.GET(profilerPathPrefix, m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
		router.GET(profilerPathPrefix+"profile", m.ops(api.GetCPUProfile))
		router.GET(profilerPathPrefix+"trace", m.ops(api.GetTraceProfile))
		router.GET(profilerPathPrefix+"symbol", m.ops(api.GetSymbol))
		router.GET(profilerPathPrefix+"cmdline", m.ops(api.GetCmdLine))
		for _, name := range []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"} {
			router.GET(profilerPathPrefix+name, m.ops(api.OpsHandlerWrapper(pprof.Handler(name))))
		}
	}

	return router
}
