package ledger

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gasflow-erp/gasflow/internal/catalog"
	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Customer is the reference shape accepted in request bodies.
type Customer struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Handler wires HTTP endpoints for cylinder transactions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/deposits", h.handleDeposit)
	r.Post("/returns", h.handleReturn)
	r.Get("/{id}", h.handleGet)
}

// transactionRequest accepts customer/product references as bare ids or
// embedded objects; normalization happens in shared.Reference.
type transactionRequest struct {
	Customer      shared.Reference[Customer]        `json:"customer" validate:"required"`
	Product       shared.Reference[catalog.Product] `json:"product"`
	Quantity      int64                             `json:"quantity"`
	Items         []Item                            `json:"items"`
	Amount        float64                           `json:"amount"`
	PaymentMode   string                            `json:"payment_mode"`
	PaidAmount    float64                           `json:"paid_amount"`
	EmployeeID    uuid.UUID                         `json:"employee_id"`
	LinkedDeposit uuid.UUID                         `json:"linked_deposit"`
	ActorID       string                            `json:"actor_id"`
}

func (req transactionRequest) owner() shared.Owner {
	if req.EmployeeID != uuid.Nil {
		return shared.EmployeeOwner(req.EmployeeID)
	}
	return shared.AdminOwner()
}

type transactionResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ProductID     uuid.UUID `json:"product_id,omitempty"`
	Items         []Item    `json:"items,omitempty"`
	Quantity      int64     `json:"quantity"`
	Amount        float64   `json:"amount"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	LinkedDeposit uuid.UUID `json:"linked_deposit,omitempty"`
	InvoiceNumber string    `json:"invoice_number"`
}

func toResponse(t Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		CustomerID:    t.CustomerID,
		Items:         t.Items,
		Quantity:      t.TotalQuantity(),
		Amount:        t.Amount,
		Type:          string(t.Type),
		Status:        string(t.Status),
		InvoiceNumber: t.InvoiceNumber,
	}
	if t.ProductID != uuid.Nil {
		resp.ProductID = t.ProductID
	}
	if t.LinkedDeposit != uuid.Nil {
		resp.LinkedDeposit = t.LinkedDeposit
	}
	return resp
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.RecordDeposit(r.Context(), DepositInput{
		Owner:       req.owner(),
		CustomerID:  req.Customer.ID(),
		ProductID:   req.Product.ID(),
		Quantity:    req.Quantity,
		Items:       req.Items,
		Amount:      req.Amount,
		PaymentMode: req.PaymentMode,
		PaidAmount:  req.PaidAmount,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.logger.Warn("record deposit rejected", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.RecordReturn(r.Context(), ReturnInput{
		Owner:         req.owner(),
		CustomerID:    req.Customer.ID(),
		ProductID:     req.Product.ID(),
		Quantity:      req.Quantity,
		Items:         req.Items,
		Amount:        req.Amount,
		PaymentMode:   req.PaymentMode,
		PaidAmount:    req.PaidAmount,
		LinkedDeposit: req.LinkedDeposit,
		ActorID:       req.ActorID,
	})
	if err != nil {
		h.logger.Warn("record return rejected", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (transactionRequest, bool) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return req, false
	}
	if req.Customer.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrCustomerRequired.Error())
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrCustomerRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
