package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/rbacgate/rbacgate/internal/jobs"
)

type fakePurger struct {
	removed int64
	err     error
	calls   int
}

func (f *fakePurger) PurgeExpired(context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestPurgeSessionsJobHandle(t *testing.T) {
	purger := &fakePurger{removed: 3}
	job := NewPurgeSessionsJob(purger, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPurgeSessionsTask("manual")
	require.NoError(t, err)
	require.Equal(t, TaskPurgeSessions, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, purger.calls)
}

func TestPurgeSessionsJobPropagatesStoreError(t *testing.T) {
	boom := errors.New("store down")
	purger := &fakePurger{err: boom}
	job := NewPurgeSessionsJob(purger, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPurgeSessionsTask("")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestPurgeSessionsJobSkipsMalformedPayload(t *testing.T) {
	purger := &fakePurger{}
	job := NewPurgeSessionsJob(purger, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskPurgeSessions, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, purger.calls)
}

func TestNewPurgeSessionsTaskDefaultsReason(t *testing.T) {
	task, err := NewPurgeSessionsTask("")
	require.NoError(t, err)
	var payload PurgeSessionsPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "scheduled", payload.Reason)
}

func TestJobMetricsCountPurgedSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewPurgeSessionsJob(&fakePurger{removed: 5}, nil, metrics)
	task, err := NewPurgeSessionsTask("manual")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	expected := `
# HELP rbacgate_sessions_purged_total Expired sessions removed by the purge job.
# TYPE rbacgate_sessions_purged_total counter
rbacgate_sessions_purged_total 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rbacgate_sessions_purged_total"))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body QueueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
	assert.Zero(t, body.Pending)
}
