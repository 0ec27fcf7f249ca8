package http

import (
	"log/slog"

	"github.com/cmlabs-hris/erp-backend-go/internal/config"
	"github.com/cmlabs-hris/erp-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(cfg *config.Config, JWTService jwt.Service, payrollHandler PayrollHandler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/payrolls", func(r chi.Router) {
				r.Get("/", payrollHandler.ListPayrolls)
				r.Post("/", payrollHandler.CreatePayroll)

				r.Route("/employees/{employeeId}", func(r chi.Router) {
					r.Post("/recalculate", payrollHandler.RecalculateEmployee)
					r.Put("/vacation", payrollHandler.SetVacation)
					r.Delete("/vacation", payrollHandler.ClearVacation)
					r.Post("/items", payrollHandler.AddItem)
					r.Get("/payslip", payrollHandler.Payslip)
				})

				r.Route("/items/{itemId}", func(r chi.Router) {
					r.Patch("/", payrollHandler.UpdateItem)
					r.Delete("/", payrollHandler.RemoveItem)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetPayroll)
					r.Patch("/", payrollHandler.UpdatePayroll)
					r.Post("/recalculate", payrollHandler.RecalculatePayroll)
					r.Put("/thirteenth-salary", payrollHandler.ApplyThirteenthSalary)
					r.Delete("/thirteenth-salary", payrollHandler.ClearThirteenthSalary)

					// Posting and reversing finance entries is restricted
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireManager)
						r.Delete("/", payrollHandler.DeletePayroll)
						r.Post("/close", payrollHandler.ClosePayroll)
						r.Post("/reopen", payrollHandler.ReopenPayroll)
					})
				})
			})
		})
	})

	return r
}
