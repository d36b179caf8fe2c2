package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/health", http.StatusOK, 20*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordSubmission(SubmissionAccepted)
	m.RecordSubmission(SubmissionExpired)
	m.RecordSubmission(SubmissionAccepted)
	m.RecordEmails("marketing", 3, 1)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(2), snap.Submissions[SubmissionAccepted])
	assert.Equal(t, uint64(1), snap.Submissions[SubmissionExpired])
	assert.Equal(t, uint64(3), snap.EmailsSent)
	assert.Equal(t, uint64(1), snap.EmailsFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "attendance_submissions_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordSubmission(SubmissionDuplicate)
	m.RecordEmails("status", 1, 0)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
