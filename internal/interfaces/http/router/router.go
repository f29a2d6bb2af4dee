// Package router assembles the gin engine of the shop API: the middleware
// stack and one route group per bounded context.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where every bounded context is mounted.
const APIPrefix = "/api/v1"

// Route is one endpoint relative to its group prefix.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func get(path string, h gin.HandlerFunc) Route  { return Route{http.MethodGet, path, h} }
func post(path string, h gin.HandlerFunc) Route { return Route{http.MethodPost, path, h} }
func put(path string, h gin.HandlerFunc) Route  { return Route{http.MethodPut, path, h} }

// Group is the routes of one bounded context, such as the ledger under
// /accounts. Middleware runs before every route of the group only.
type Group struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Mount registers g under parent.
func (g Group) Mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.Prefix, g.Middleware...)
	for _, r := range g.Routes {
		rg.Handle(r.Method, r.Path, r.Handler)
	}
}

// Describe lists "METHOD path" per route, relative to the prefix.
func (g Group) Describe() []string {
	out := make([]string, len(g.Routes))
	for i, r := range g.Routes {
		out[i] = r.Method + " " + r.Path
	}
	return out
}
