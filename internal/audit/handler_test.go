package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimeline struct {
	filters TimelineFilters
	result  Result
	rows    []TimelineRow
	err     error
}

func (f *fakeTimeline) Timeline(_ context.Context, filters TimelineFilters) (Result, error) {
	f.filters = filters
	return f.result, f.err
}

func (f *fakeTimeline) Export(_ context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	f.filters = filters
	return f.rows, f.err
}

func newTestRouter(svc TimelineService) chi.Router {
	h := NewHandler(nil, svc)
	h.now = func() time.Time { return time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	svc := &fakeTimeline{result: Result{Rows: []TimelineRow{row("2024-05-09T10:00:00Z", "PO_CREATE", "a")}, Paging: PagingInfo{Page: 1, PageSize: 20}}}
	rec := get(newTestRouter(svc), "/audit?entity=purchase_order&actor_id=7")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), svc.filters.From)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), svc.filters.To)
	assert.Equal(t, int64(7), svc.filters.ActorID)
	assert.Equal(t, "purchase_order", svc.filters.Entity)

	var body Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "PO_CREATE", body.Rows[0].Action)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	cases := map[string]string{
		"bad date":      "/audit?from=05-01-2024",
		"reversed":      "/audit?from=2024-05-09&to=2024-05-01",
		"too wide":      "/audit?from=2024-01-01&to=2024-05-01",
		"bad actor":     "/audit?actor_id=abc",
		"zero page":     "/audit?page=0",
		"bad page size": "/audit?page_size=-1",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeTimeline{}
			rec := get(newTestRouter(svc), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
		})
	}
}

func TestTimelineServiceFailure(t *testing.T) {
	rec := get(newTestRouter(&fakeTimeline{err: errors.New("db down")}), "/audit")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestExportCSV(t *testing.T) {
	svc := &fakeTimeline{rows: []TimelineRow{row("2024-05-09T10:00:00Z", "PO_CREATE", "a")}}
	rec := get(newTestRouter(svc), "/audit/export.csv?from=2024-05-01&to=2024-05-09")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "audit-timeline.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "occurred_at,"))
	assert.Contains(t, rec.Body.String(), "PO_CREATE")
}

func TestExportIsRateLimited(t *testing.T) {
	r := newTestRouter(&fakeTimeline{})
	var last int
	for i := 0; i <= exportLimit; i++ {
		last = get(r, "/audit/export.csv").Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
