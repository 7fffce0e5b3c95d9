package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mebel-erp/mebel-erp/internal/platform/httpx"
)

// Handler exposes read-only stock endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{itemID}/{locationID}", h.getQuantity)
	r.Get("/locations/{locationID}", h.listByLocation)
}

type quantityResponse struct {
	ItemID     int64 `json:"item_id"`
	LocationID int64 `json:"location_id"`
	Qty        int64 `json:"qty"`
}

type recordResponse struct {
	ItemID     int64     `json:"item_id"`
	LocationID int64     `json:"location_id"`
	Qty        int64     `json:"qty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *Handler) getQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, _ := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	locationID, _ := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if itemID == 0 || locationID == 0 {
		httpx.Error(w, http.StatusBadRequest, "item and location required")
		return
	}
	qty, err := h.service.GetQuantity(r.Context(), itemID, locationID)
	if err != nil {
		h.logger.Error("get quantity", slog.Any("error", err), slog.Int64("item_id", itemID), slog.Int64("location_id", locationID))
		httpx.Error(w, http.StatusInternalServerError, "failed to load stock")
		return
	}
	httpx.JSON(w, http.StatusOK, quantityResponse{ItemID: itemID, LocationID: locationID, Qty: qty})
}

func (h *Handler) listByLocation(w http.ResponseWriter, r *http.Request) {
	locationID, _ := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if locationID == 0 {
		httpx.Error(w, http.StatusBadRequest, "location required")
		return
	}
	records, err := h.service.ListByLocation(r.Context(), locationID)
	if err != nil {
		h.logger.Error("list stock", slog.Any("error", err), slog.Int64("location_id", locationID))
		httpx.Error(w, http.StatusInternalServerError, "failed to load stock")
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{ItemID: rec.ItemID, LocationID: rec.LocationID, Qty: rec.Qty, UpdatedAt: rec.UpdatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}
