package ledger

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

func newTestHandler() (*Handler, *memoryLedgerRepo) {
	repo := &memoryLedgerRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, NewCache(nil, 0), logger)
	return NewHandler(logger, svc), repo
}

func serveLedger(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/ledger", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestListRejectsMalformedDates(t *testing.T) {
	h, _ := newTestHandler()

	rr := serveLedger(h, httptest.NewRequest(http.MethodGet, "/ledger/entries?from=31-12-2025", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "from date")

	rr = serveLedger(h, httptest.NewRequest(http.MethodGet, "/ledger/entries?to=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "to date")

	rr = serveLedger(h, httptest.NewRequest(http.MethodGet, "/ledger/entries?from=2025-01-01&to=2025-02-01", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAppendRejectsMalformedDate(t *testing.T) {
	h, repo := newTestHandler()

	body := `{"date":"01/02/2025","flow":"INCOME","amount":100,"description":"cash sale"}`
	rr := serveLedger(h, httptest.NewRequest(http.MethodPost, "/ledger/entries", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, repo.entries, "nothing may be written for a rejected request")

	body = `{"date":"2025-02-01","flow":"INCOME","amount":100,"description":"cash sale"}`
	rr = serveLedger(h, httptest.NewRequest(http.MethodPost, "/ledger/entries", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, repo.entries, 1)
}
