package assignment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
)

// Handler wires HTTP endpoints for stock assignments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs assignment handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleIssue)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/accept", h.handleAccept)
	r.Post("/{id}/return", h.handleReturn)
}

type issueRequest struct {
	EmployeeID   uuid.UUID `json:"employee_id" validate:"required"`
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	Quantity     int64     `json:"quantity" validate:"required,gt=0"`
	GasProductID uuid.UUID `json:"gas_product_id"`
	ActorID      string    `json:"actor_id"`
}

type assignmentResponse struct {
	ID                uuid.UUID `json:"id"`
	EmployeeID        uuid.UUID `json:"employee_id"`
	ProductID         uuid.UUID `json:"product_id"`
	Quantity          int64     `json:"quantity"`
	RemainingQuantity int64     `json:"remaining_quantity"`
	Category          string    `json:"category"`
	CylinderStatus    string    `json:"cylinder_status,omitempty"`
	Status            string    `json:"status"`
	LeastPrice        float64   `json:"least_price"`
}

func toResponse(a Assignment) assignmentResponse {
	return assignmentResponse{
		ID:                a.ID,
		EmployeeID:        a.EmployeeID,
		ProductID:         a.ProductID,
		Quantity:          a.Quantity,
		RemainingQuantity: a.RemainingQuantity,
		Category:          string(a.Category),
		CylinderStatus:    string(a.CylinderStatus),
		Status:            string(a.Status),
		LeastPrice:        a.LeastPrice,
	}
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	a, err := h.service.Issue(r.Context(), IssueInput{
		EmployeeID:   req.EmployeeID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		GasProductID: req.GasProductID,
		ActorID:      req.ActorID,
	})
	if err != nil {
		h.logger.Error("issue assignment", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

type actorRequest struct {
	EmployeeID uuid.UUID `json:"employee_id" validate:"required"`
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Accept)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Return)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, assignmentID, employeeID uuid.UUID) (Assignment, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	a, err := transition(r.Context(), id, req.EmployeeID)
	if err != nil {
		h.logger.Warn("assignment transition rejected", slog.String("id", id.String()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAssignee):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotAcceptable), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
