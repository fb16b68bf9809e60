package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route binds one HTTP endpoint to a handler. Authenticated routes run
// behind the bearer token middleware.
type Route struct {
	Method        string
	Path          string
	Authenticated bool
	Handle        gin.HandlerFunc
}

// Routes is the service's HTTP surface.
func (h *AccountHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/v1/users", Handle: h.Register},
		{Method: http.MethodGet, Path: "/v1/users", Handle: h.ListAccounts},
		{Method: http.MethodGet, Path: "/v1/users/lookup", Handle: h.Lookup},
		{Method: http.MethodGet, Path: "/v1/users/:userId", Handle: h.GetAccount},
		{Method: http.MethodGet, Path: "/v1/users/:userId/profile", Handle: h.GetProfile},
		{Method: http.MethodPatch, Path: "/v1/users/:userId", Authenticated: true, Handle: h.UpdateProfile},
		{Method: http.MethodDelete, Path: "/v1/users/:userId", Authenticated: true, Handle: h.DeleteAccount},
		{Method: http.MethodPost, Path: "/v1/users/password/reset", Handle: h.ResetPassword},
		{Method: http.MethodGet, Path: "/health", Handle: Health},
	}
}

// Mount registers every route on r, placing auth in front of the
// authenticated ones.
func (h *AccountHandler) Mount(r gin.IRoutes, auth gin.HandlerFunc) {
	for _, route := range h.Routes() {
		if route.Authenticated {
			r.Handle(route.Method, route.Path, auth, route.Handle)
			continue
		}
		r.Handle(route.Method, route.Path, route.Handle)
	}
}
