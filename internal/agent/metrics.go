package agent

import "github.com/prometheus/client_golang/prometheus"

// ToolMetrics counts tool invocations by tool name and outcome.
type ToolMetrics struct {
	calls *prometheus.CounterVec
}

// NewToolMetrics registers the tool counter on reg.
func NewToolMetrics(reg prometheus.Registerer) *ToolMetrics {
	m := &ToolMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monica_tool_calls_total",
			Help: "Tool calls made by the agent, by tool and outcome.",
		}, []string{"tool", "outcome"}),
	}
	reg.MustRegister(m.calls)
	return m
}

func (m *ToolMetrics) observe(tool, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
}
