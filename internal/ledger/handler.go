package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mebel-erp/mebel-erp/internal/platform/httpx"
	"github.com/mebel-erp/mebel-erp/internal/shared"
)

// Handler exposes the reporting surface of the ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summarize)
	r.Get("/entries", h.list)
	r.Post("/entries", h.append)
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context())
	if err != nil {
		h.logger.Error("ledger summary", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to summarize ledger")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type entryResponse struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Flow        string    `json:"flow"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	RefType     string    `json:"ref_type"`
	RefID       *int64    `json:"ref_id,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := Filter{
		Flow:  FlowType(r.URL.Query().Get("flow")),
		Limit: limit,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.From = parsed
	}
	if to := r.URL.Query().Get("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.To = parsed
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("list ledger entries", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to load ledger entries")
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID: e.ID, Date: e.Date, Flow: string(e.Flow), Amount: e.Amount,
			Description: e.Description, RefType: string(e.RefType), RefID: e.RefID,
			CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type appendRequest struct {
	Date        string  `json:"date"`
	Flow        string  `json:"flow"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (h *Handler) append(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry := Entry{
		Flow:        FlowType(req.Flow),
		Amount:      req.Amount,
		Description: req.Description,
		RefType:     RefOther,
		CreatedBy:   shared.ActorFromContext(r.Context()),
	}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		entry.Date = parsed
	}
	id, err := h.service.Append(r.Context(), entry)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("append ledger entry", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to append ledger entry")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}
