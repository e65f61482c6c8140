package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	calls int
	err   error
}

func (s *stubEnqueuer) EnqueueSyncAll(ctx context.Context) (*asynq.TaskInfo, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func mountHandler(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestEnqueueSyncAccepted(t *testing.T) {
	enq := &stubEnqueuer{}
	h := NewHandler(nil, enq, nil)

	rr := httptest.NewRecorder()
	mountHandler(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/sync", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, 1, enq.calls)
	require.JSONEq(t, `{"task":"task-1","queue":"default"}`, rr.Body.String())
}

func TestEnqueueSyncWithoutClientUnavailable(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	rr := httptest.NewRecorder()
	mountHandler(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/sync", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEnqueueSyncQueueFailureUnavailable(t *testing.T) {
	enq := &stubEnqueuer{err: errors.New("redis down")}
	h := NewHandler(nil, enq, nil)

	rr := httptest.NewRecorder()
	mountHandler(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/sync", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, 1, enq.calls)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	rr := httptest.NewRecorder()
	mountHandler(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rr.Body.String())
}
