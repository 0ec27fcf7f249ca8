package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/erp-backend-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

const (
	RoleOwner    = "owner"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// RequireManager requires manager or owner role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Forbidden(w, "Manager access required")
			return
		}

		role, ok := claims["role"].(string)
		if !ok {
			response.Forbidden(w, "Manager access required")
			return
		}

		if role != RoleManager && role != RoleOwner {
			response.Forbidden(w, "Manager access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
