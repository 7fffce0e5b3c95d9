package sales

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
	"github.com/mebel-erp/mebel-erp/internal/orders"
	"github.com/mebel-erp/mebel-erp/internal/platform/db"
	"github.com/mebel-erp/mebel-erp/internal/platform/httpx"
	"github.com/mebel-erp/mebel-erp/internal/shared"
)

// Handler manages sale-order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sale-order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/status", h.updateStatus)
}

type lineRequest struct {
	ID         int64   `json:"id"`
	ItemID     int64   `json:"item_id" validate:"required"`
	LocationID int64   `json:"location_id" validate:"required"`
	Qty        int64   `json:"qty" validate:"required,gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
}

type saveRequest struct {
	CustomerName  string        `json:"customer_name" validate:"required"`
	CustomerPhone string        `json:"customer_phone"`
	SaleDate      string        `json:"sale_date"`
	Discount      float64       `json:"discount" validate:"gte=0"`
	Status        string        `json:"status"`
	Lines         []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderResponse struct {
	ID            int64          `json:"id"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	SaleDate      time.Time      `json:"sale_date"`
	TotalAmount   float64        `json:"total_amount"`
	Discount      float64        `json:"discount"`
	FinalAmount   float64        `json:"final_amount"`
	Status        string         `json:"status"`
	CreatedBy     int64          `json:"created_by"`
	Lines         []lineResponse `json:"lines,omitempty"`
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
	req, ok := h.decodeSave(w, r)
	if !ok {
		return
	}
	saleDate, ok := parseSaleDate(w, req.SaleDate)
	if !ok {
		return
	}
	input := CreateInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		SaleDate:      saleDate,
		Discount:      req.Discount,
		Status:        orders.Status(req.Status),
		ActorID:       shared.ActorFromContext(r.Context()),
		Lines:         toLineInputs(req.Lines),
	}
	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create sale order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	req, ok := h.decodeSave(w, r)
	if !ok {
		return
	}
	saleDate, ok := parseSaleDate(w, req.SaleDate)
	if !ok {
		return
	}
	input := UpdateInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		SaleDate:      saleDate,
		Discount:      req.Discount,
		Status:        orders.Status(req.Status),
		ActorID:       shared.ActorFromContext(r.Context()),
		Lines:         toLineInputs(req.Lines),
	}
	order, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update sale order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.service.UpdateStatus(r.Context(), id, orders.Status(req.Status), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "update sale order status", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get sale order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	result, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, "list sale orders", err)
		return
	}
	out := make([]orderResponse, 0, len(result))
	for _, order := range result {
		out = append(out, toOrderResponse(order))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) decodeSave(w http.ResponseWriter, r *http.Request) (saveRequest, bool) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// parseSaleDate reports false after responding 400 when the value is present
// but malformed. An empty value is fine; the service defaults it to today.
func parseSaleDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid sale_date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return parsed, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "sale order not found")
	case errors.Is(err, ErrValidation), errors.Is(err, ledger.ErrValidation):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &stockErr):
		httpx.Error(w, http.StatusConflict, stockErr.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, db.ErrTxConflict):
		httpx.Error(w, http.StatusConflict, "concurrent modification, please retry")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func toLineInputs(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			ID:         line.ID,
			ItemID:     line.ItemID,
			LocationID: line.LocationID,
			Qty:        line.Qty,
			UnitPrice:  line.UnitPrice,
		})
	}
	return out
}

func toOrderResponse(order SaleOrder) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		SaleDate:      order.SaleDate,
		TotalAmount:   order.TotalAmount,
		Discount:      order.Discount,
		FinalAmount:   order.FinalAmount,
		Status:        string(order.Status),
		CreatedBy:     order.CreatedBy,
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
