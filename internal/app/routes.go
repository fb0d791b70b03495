package app

import (
	"net/http"
	"strings"
)

// Route names. They double as metric and span labels, so the set is closed.
const (
	RouteFactorial = "factorial"
	RouteFibonacci = "fibonacci"
	RouteMean      = "mean"
	RouteOther     = "other"
)

// Route classifies a request. Rules are checked in order: exact /factorial,
// any path starting with /fibonacci, exact /mean. Only GET is served.
func Route(method, path string) string {
	if method != http.MethodGet {
		return RouteOther
	}
	switch {
	case path == "/factorial":
		return RouteFactorial
	case strings.HasPrefix(path, "/fibonacci"):
		return RouteFibonacci
	case path == "/mean":
		return RouteMean
	default:
		return RouteOther
	}
}
