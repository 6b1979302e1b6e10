package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAuth("login", OutcomeSuccess)
	m.RecordAuth("login", OutcomeSuccess)
	m.RecordAuth("login", OutcomeRejected)
	m.RecordNotificationFailure(KindWelcome)
	m.RecordRequest("GET", "/auth/login", "200", 5*time.Millisecond)
	m.RecordPruned(3)
	m.RecordPruned(0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.AuthOperations.WithLabelValues("login", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AuthOperations.WithLabelValues("login", OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationFailures.WithLabelValues(KindWelcome)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/auth/login", "200")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.SessionsPruned), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAuth("login", OutcomeSuccess)
		m.RecordNotificationFailure(KindOTP)
		m.RecordRequest("GET", "/", "200", time.Millisecond)
		m.RecordPruned(1)
	})
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	New(reg)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
