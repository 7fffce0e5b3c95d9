package sales

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

func serveSales(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/sale-orders", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateRejectsMalformedSaleDate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(newMemorySaleRepo(), nil, nil, nil))

	body := `{"customer_name":"Ibu Sari","sale_date":"2025/12/31","lines":[{"item_id":1,"location_id":1,"qty":1,"unit_price":100}]}`
	rr := serveSales(h, httptest.NewRequest(http.MethodPost, "/sale-orders/", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "sale_date")

	body = `{"customer_name":"Ibu Sari","sale_date":"2025-12-31","lines":[{"item_id":1,"location_id":1,"qty":1,"unit_price":100}]}`
	rr = serveSales(h, httptest.NewRequest(http.MethodPost, "/sale-orders/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestUpdateRejectsMalformedSaleDate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemorySaleRepo()
	h := NewHandler(logger, NewService(repo, nil, nil, nil))

	body := `{"customer_name":"Ibu Sari","lines":[{"item_id":1,"location_id":1,"qty":1,"unit_price":100}]}`
	rr := serveSales(h, httptest.NewRequest(http.MethodPost, "/sale-orders/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	body = `{"customer_name":"Ibu Sari","sale_date":"next week","lines":[{"item_id":1,"location_id":1,"qty":1,"unit_price":100}]}`
	rr = serveSales(h, httptest.NewRequest(http.MethodPut, "/sale-orders/1", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "sale_date")
}
