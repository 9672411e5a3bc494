package refill

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Handler wires HTTP endpoints for refills.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs refill handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers refill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleProcess)
}

type refillRequest struct {
	PartyID       uuid.UUID                         `json:"party_id"`
	GasProduct    shared.Reference[catalog.Product] `json:"gas_product" validate:"required"`
	EmptyCylinder shared.Reference[catalog.Product] `json:"empty_cylinder" validate:"required"`
	Quantity      int64                             `json:"quantity" validate:"required,gt=0"`
	EmployeeID    uuid.UUID                         `json:"employee_id"`
	ActorID       string                            `json:"actor_id"`
}

type itemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	CurrentStock   int64     `json:"current_stock"`
	AvailableEmpty int64     `json:"available_empty"`
	AvailableFull  int64     `json:"available_full"`
}

type refillResponse struct {
	VoucherNumber     string       `json:"voucher_number,omitempty"`
	GasInventory      itemResponse `json:"gas_inventory"`
	CylinderInventory itemResponse `json:"cylinder_inventory"`
}

func toItemResponse(item inventory.Item) itemResponse {
	return itemResponse{
		ProductID:      item.ProductID,
		CurrentStock:   item.CurrentStock,
		AvailableEmpty: item.AvailableEmpty,
		AvailableFull:  item.AvailableFull,
	}
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req refillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.GasProduct.IsZero() || req.EmptyCylinder.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "gas_product and empty_cylinder are required")
		return
	}

	owner := shared.AdminOwner()
	if req.EmployeeID != uuid.Nil {
		owner = shared.EmployeeOwner(req.EmployeeID)
	}

	result, err := h.service.Process(r.Context(), Input{
		Owner:           owner,
		PartyID:         req.PartyID,
		GasProductID:    req.GasProduct.ID(),
		EmptyCylinderID: req.EmptyCylinder.ID(),
		Quantity:        req.Quantity,
		ActorID:         req.ActorID,
	})
	if err != nil {
		h.logger.Warn("refill rejected", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, refillResponse{
		VoucherNumber:     result.VoucherNumber,
		GasInventory:      toItemResponse(result.GasInventory),
		CylinderInventory: toItemResponse(result.CylinderInventory),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNotGasProduct), errors.Is(err, ErrNotEmptyCylinder):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
