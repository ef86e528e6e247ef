package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"splitledger/internal/config"
	"splitledger/internal/metrics"
	"splitledger/internal/transport/httpserver/handler"
	authmw "splitledger/internal/transport/httpserver/middleware"
	"splitledger/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, tokens authmw.TokenVerifier, m *metrics.Metrics, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.HTTP.RequestTimeout))
	}
	r.Use(authmw.NewCORS(cfg.HTTP.AllowedOrigins))

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Post("/auth/register", handlers.Register)
		r.Post("/auth/login", handlers.Login)

		auth := authmw.NewJWTAuth(cfg.Auth, tokens, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/auth/me", handlers.AuthMe)

			r.Get("/groups", handlers.ListGroups)
			r.Post("/groups", handlers.CreateGroup)
			r.Get("/groups/{group_id}", handlers.GetGroup)
			r.Delete("/groups/{group_id}", handlers.DeleteGroup)
			r.Post("/groups/{group_id}/join", handlers.JoinGroup)
			r.Post("/groups/{group_id}/leave", handlers.LeaveGroup)
			r.Post("/groups/{group_id}/invite", handlers.InviteMember)
			r.Get("/groups/{group_id}/aggregation", handlers.GroupAggregation)

			r.Get("/expenses", handlers.ListExpenses)
			r.Post("/expenses", handlers.CreateExpense)
			r.Get("/expenses/{expense_id}", handlers.GetExpense)
			r.Post("/expenses/{expense_id}/settle", handlers.SettleExpense)

			r.Get("/approvals/pending", handlers.ListPendingApprovals)
			r.Post("/approvals/expense/{request_id}", handlers.RespondExpense)
			r.Post("/approvals/settle/{request_id}", handlers.RespondSettle)
		})
	})

	return r
}
