package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/dorea/lib/db/util"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// serverMetrics tracks command statistics twice: as prometheus metrics for
// the optional /metrics endpoint and as in-process meters for INFO stats
type serverMetrics struct {
	set *vm.Set

	registry gometrics.Registry
	commands gometrics.Meter
	errors   gometrics.Meter
	rejects  gometrics.Counter
	sessions gometrics.Counter
	latency  gometrics.Timer
}

func newServerMetrics(connections func() int) *serverMetrics {
	registry := gometrics.NewRegistry()
	m := &serverMetrics{
		set:      vm.NewSet(),
		registry: registry,
		commands: gometrics.GetOrRegisterMeter("commands", registry),
		errors:   gometrics.GetOrRegisterMeter("errors", registry),
		rejects:  gometrics.GetOrRegisterCounter("rejected", registry),
		sessions: gometrics.GetOrRegisterCounter("sessions", registry),
		latency:  gometrics.GetOrRegisterTimer("latency", registry),
	}

	m.set.NewGauge("dorea_connections", func() float64 {
		return float64(connections())
	})
	return m
}

func (m *serverMetrics) observe(op common.Operation, state common.State, start time.Time) {
	m.commands.Mark(1)
	m.latency.UpdateSince(start)
	if state != common.StateOK {
		m.errors.Mark(1)
	}

	m.set.GetOrCreateCounter(fmt.Sprintf(`dorea_commands_total{op=%q,state=%q}`, op.String(), state.String())).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`dorea_command_duration_seconds{op=%q}`, op.String())).UpdateDuration(start)
}

func (m *serverMetrics) rejected() {
	m.rejects.Inc(1)
	m.set.GetOrCreateCounter(`dorea_commands_rejected_total`).Inc()
}

func (m *serverMetrics) sessionOpened() {
	m.sessions.Inc(1)
	m.set.GetOrCreateCounter(`dorea_sessions_total`).Inc()
}

func (m *serverMetrics) sessionClosed() {
	m.sessions.Dec(1)
}

// handler serves the prometheus exposition format
func (m *serverMetrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		m.set.WritePrometheus(w)
		vm.WriteProcessMetrics(w)
	})
	return mux
}

func (m *serverMetrics) close() {
	m.registry.UnregisterAll()
}

// stats renders the INFO stats reply
func (s *RPCServer) stats() value.Dict {
	m := s.metrics
	flush := s.manager.FlushStats()
	cur, limit := s.manager.TotalIndex()

	// how evenly the index is spread over the loaded groups
	groups := s.manager.Groups()
	lens := make([]float64, len(groups))
	for i, g := range groups {
		lens[i] = float64(g.Len)
	}
	spread := util.NewStats(lens)

	return value.Dict{
		"uptime_seconds":      value.Integer(time.Since(s.startup) / time.Second),
		"connections":         value.Integer(s.transport.Connections()),
		"commands_total":      value.Integer(m.commands.Count()),
		"commands_rate_1m":    value.Float(m.commands.Rate1()),
		"errors_total":        value.Integer(m.errors.Count()),
		"rejected_total":      value.Integer(m.rejects.Count()),
		"latency_mean_us":     value.Float(m.latency.Mean() / float64(time.Microsecond)),
		"latency_p99_us":      value.Float(m.latency.Percentile(0.99) / float64(time.Microsecond)),
		"index_total":         value.Integer(cur),
		"index_limit":         value.Integer(limit),
		"group_len_mean":      value.Float(spread.Mean),
		"group_len_stddev":    value.Float(spread.StdDeviation),
		"group_len_max":       value.Integer(spread.Max),
		"flushes":             value.Integer(flush.Flushes),
		"flush_failures":      value.Integer(flush.Failures),
		"last_flush_unix":     value.Integer(flush.LastFlush.Unix()),
		"last_flush_duration": value.String(flush.LastDuration.String()),
	}
}
