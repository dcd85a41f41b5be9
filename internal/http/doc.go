// Package http exposes the scheduling services over a JSON API. Routing
// uses gorilla/mux; the authenticated identity arrives in headers placed by
// the fronting auth layer and becomes the request scope via middleware.
package http
