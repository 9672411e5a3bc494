package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gasflow-erp/gasflow/internal/assignment"
	"github.com/gasflow-erp/gasflow/internal/dailyreport"
	"github.com/gasflow-erp/gasflow/internal/ledger"
	"github.com/gasflow-erp/gasflow/internal/refill"
	"github.com/gasflow-erp/gasflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AssignmentHandler *assignment.Handler
	LedgerHandler     *ledger.Handler
	RefillHandler     *refill.Handler
	ReportHandler     *dailyreport.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Gasflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.AssignmentHandler != nil {
			r.Route("/assignments", params.AssignmentHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/transactions", params.LedgerHandler.MountRoutes)
		}
		if params.RefillHandler != nil {
			r.Route("/refills", params.RefillHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
