package purchasing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mebel-erp/mebel-erp/internal/inventory"
	"github.com/mebel-erp/mebel-erp/internal/ledger"
	"github.com/mebel-erp/mebel-erp/internal/platform/db"
	"github.com/mebel-erp/mebel-erp/internal/platform/httpx"
	"github.com/mebel-erp/mebel-erp/internal/shared"
)

// Handler manages purchase-order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase-order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

type createLineRequest struct {
	ItemID     int64   `json:"item_id" validate:"required"`
	LocationID int64   `json:"location_id" validate:"required"`
	Qty        int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"required,gt=0"`
}

type createRequest struct {
	SupplierID int64               `json:"supplier_id" validate:"required"`
	OrderDate  string              `json:"order_date"`
	Lines      []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type orderResponse struct {
	ID          int64          `json:"id"`
	SupplierID  int64          `json:"supplier_id"`
	OrderDate   time.Time      `json:"order_date"`
	TotalAmount float64        `json:"total_amount"`
	Status      string         `json:"status"`
	CreatedBy   int64          `json:"created_by"`
	Lines       []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	ID         int64   `json:"id"`
	ItemID     int64   `json:"item_id"`
	LocationID int64   `json:"location_id"`
	Qty        int64   `json:"qty"`
	UnitPrice  float64 `json:"unit_price"`
	Amount     float64 `json:"amount"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	input := CreateInput{
		SupplierID: req.SupplierID,
		ActorID:    shared.ActorFromContext(r.Context()),
	}
	if req.OrderDate != "" {
		orderDate, err := time.Parse("2006-01-02", req.OrderDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid order_date, expected YYYY-MM-DD")
			return
		}
		input.OrderDate = orderDate
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ItemID:     line.ItemID,
			LocationID: line.LocationID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
		})
	}
	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	result, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, "list purchase orders", err)
		return
	}
	out := make([]orderResponse, 0, len(result))
	for _, order := range result {
		out = append(out, toOrderResponse(order))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	err := h.service.Complete(r.Context(), id, shared.ActorFromContext(r.Context()))
	if errors.Is(err, ErrAlreadyCompleted) {
		// idempotent no-op: retries of a completed order succeed
		httpx.NoContent(w)
		return
	}
	if err != nil {
		h.respondError(w, "complete purchase order", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Cancel(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, "cancel purchase order", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "purchase order not found")
	case errors.Is(err, ErrValidation), errors.Is(err, ledger.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrTxConflict):
		httpx.Error(w, http.StatusConflict, "concurrent modification, please retry")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func toOrderResponse(order PurchaseOrder) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		SupplierID:  order.SupplierID,
		OrderDate:   order.OrderDate,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedBy:   order.CreatedBy,
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:         line.ID,
			ItemID:     line.ItemID,
			LocationID: line.LocationID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
			Amount:     line.Amount,
		})
	}
	return resp
}
