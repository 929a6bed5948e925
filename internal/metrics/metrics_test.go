package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.VoteCast("ok")
	m.VoteCast("ok")
	m.VoteCast("already_voted")
	m.SweepRemoved(3)
	m.AIRequest("stream", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.votesCast.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votesCast.WithLabelValues("already_voted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues("stream", "ok")))
}

func TestMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.VoteCast("ok")
		m.ImageUpload("ok")
		m.SweepRemoved(1)
		m.AIRequest("buffered", "ok")
	})
}
