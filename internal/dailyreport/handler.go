package dailyreport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Handler wires HTTP endpoints for reconciliation reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs report handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/daily", h.handleDaily)
}

// handleDaily serves GET /daily?date=YYYY-MM-DD&employee_id=<uuid>. Date
// defaults to today; employee_id absent means the admin scope.
func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "date must be formatted YYYY-MM-DD")
			return
		}
		date = parsed
	}

	owner := shared.AdminOwner()
	if raw := r.URL.Query().Get("employee_id"); raw != "" {
		employeeID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Employee ID", err.Error())
			return
		}
		owner = shared.EmployeeOwner(employeeID)
	}

	report, err := h.service.DailyReport(r.Context(), owner, date)
	if err != nil {
		h.logger.Error("daily report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
