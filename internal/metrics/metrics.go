// Package metrics 业务指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务计数器，nil 接收者上的方法为空操作
type Metrics struct {
	votesCast    *prometheus.CounterVec
	uploads      *prometheus.CounterVec
	sweepRemoved prometheus.Counter
	aiRequests   *prometheus.CounterVec
}

// New 创建并注册业务指标
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		votesCast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eatinator_votes_cast_total",
				Help: "Vote attempts by result.",
			},
			[]string{"result"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eatinator_image_uploads_total",
				Help: "Image upload attempts by result.",
			},
			[]string{"result"},
		),
		sweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eatinator_image_sweep_removed_total",
			Help: "Images removed by the retention sweep.",
		}),
		aiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eatinator_ai_requests_total",
				Help: "AI relay calls by mode and result.",
			},
			[]string{"mode", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.votesCast, m.uploads, m.sweepRemoved, m.aiRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) VoteCast(result string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(result).Inc()
}

func (m *Metrics) ImageUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) SweepRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepRemoved.Add(float64(n))
}

func (m *Metrics) AIRequest(mode, result string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(mode, result).Inc()
}
