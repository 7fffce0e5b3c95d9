package purchasing

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func servePurchasing(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/purchase-orders", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateRejectsMalformedOrderDate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(newMemoryPurchaseRepo(), nil, nil, nil))

	body := `{"supplier_id":1,"order_date":"31-12-2025","lines":[{"item_id":1,"location_id":1,"qty":2,"unit_price":10}]}`
	rr := servePurchasing(h, httptest.NewRequest(http.MethodPost, "/purchase-orders/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "order_date")

	body = `{"supplier_id":1,"order_date":"2025-12-31","lines":[{"item_id":1,"location_id":1,"qty":2,"unit_price":10}]}`
	rr = servePurchasing(h, httptest.NewRequest(http.MethodPost, "/purchase-orders/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
}
