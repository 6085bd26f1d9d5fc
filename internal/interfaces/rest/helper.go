package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
	// untimed routes outlive the request timeout (websockets, downloads)
	untimed bool
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

var routeMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// routeSet registered route patterns, matched against echo.Context.Path
type routeSet map[string]struct{}

func (rs routeSet) has(c echo.Context) bool {
	_, ok := rs[c.Path()]
	return ok
}

// createEndpoint registers def on app and returns the patterns of its untimed routes.
// It panics on a method outside routeMethods or on a method and path registered twice.
func createEndpoint(app *echo.Echo, def *endpoint) routeSet {
	base := "/" + strings.TrimPrefix(def.apiVersion, "/")
	root := app.Group(base, def.middlewares...)

	untimed := make(routeSet)
	seen := make(map[string]bool)
	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		for _, api := range group.routes {
			if !routeMethods[api.method] {
				panic(fmt.Errorf("createEndpoint: unknown method %s", api.method))
			}
			pattern := base + group.prefix + api.path
			key := api.method + " " + pattern
			if seen[key] {
				panic(fmt.Errorf("createEndpoint: duplicated route %s", key))
			}
			seen[key] = true

			echoGroup.Add(api.method, api.path, api.handler, api.middlewares...)
			if group.untimed {
				untimed[pattern] = struct{}{}
			}
		}
	}
	return untimed
}
