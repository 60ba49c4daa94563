package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the public endpoints. Books routes live under the api prefix.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.GET("/health", m.ops(api.Health))
	router.GET("/ready", m.ops(api.Ready))

	books := api.config.Server.APIPrefix + "/books"
	router.GET(books, m.public(api.GetAllBooks))
	router.POST(books, m.public(api.CreateBook))
	router.GET(books+"/:id", m.public(api.GetOneBook))
	router.PUT(books+"/:id", m.public(api.UpdateBook))
	router.DELETE(books+"/:id", m.public(api.DeleteOneBook))
	return router
}
