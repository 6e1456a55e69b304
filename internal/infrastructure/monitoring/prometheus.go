package monitoring

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync/atomic"
	"time"
)

// PrometheusHandler returns an http.Handler that serves Prometheus text format metrics.
// This avoids pulling in the full prometheus/client_golang dependency.
// Mount it at "/metrics" in your HTTP server.
func (m *Monitor) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(m.metrics.StartTime).Seconds()

		// Write metrics in Prometheus exposition format
		lines := []struct {
			name string
			help string
			typ  string
			val  interface{}
		}{
			// Request counters
			{"agent_requests_total", "Total number of requests processed", "counter", atomic.LoadUint64(&m.metrics.RequestsTotal)},
			{"agent_requests_success_total", "Total successful requests", "counter", atomic.LoadUint64(&m.metrics.RequestsSuccess)},
			{"agent_requests_failed_total", "Total failed requests", "counter", atomic.LoadUint64(&m.metrics.RequestsFailed)},

			// Tool call counters
			{"agent_tool_calls_total", "Total tool calls executed", "counter", atomic.LoadUint64(&m.metrics.ToolCallsTotal)},
			{"agent_tool_calls_success_total", "Total successful tool calls", "counter", atomic.LoadUint64(&m.metrics.ToolCallsSuccess)},
			{"agent_tool_calls_failed_total", "Total failed tool calls", "counter", atomic.LoadUint64(&m.metrics.ToolCallsFailed)},

			// Model counters
			{"agent_model_calls_total", "Total LLM model calls", "counter", atomic.LoadUint64(&m.metrics.ModelCallsTotal)},
			{"agent_model_tokens_used_total", "Total tokens consumed", "counter", atomic.LoadUint64(&m.metrics.ModelTokensUsed)},

			// Errors
			{"agent_errors_total", "Total errors encountered", "counter", atomic.LoadUint64(&m.metrics.ErrorsTotal)},

			// Gauges
			{"agent_active_sessions", "Number of active sessions", "gauge", atomic.LoadInt64(&m.metrics.ActiveSessions)},
			{"agent_uptime_seconds", "Process uptime in seconds", "gauge", uptime},
			{"agent_rooms_joined", "Number of MUC rooms currently joined", "gauge", atomic.LoadInt64(&m.metrics.RoomsJoined)},

			// Runtime metrics
			{"agent_memory_alloc_bytes", "Current memory allocation in bytes", "gauge", memStats.Alloc},
			{"agent_memory_sys_bytes", "Total memory obtained from OS", "gauge", memStats.Sys},
			{"agent_goroutines", "Number of goroutines", "gauge", runtime.NumGoroutine()},
			{"agent_gc_pause_total_ns", "Total GC pause time in nanoseconds", "counter", memStats.PauseTotalNs},
			{"agent_gc_cycles_total", "Total number of completed GC cycles", "counter", memStats.NumGC},
		}

		for _, l := range lines {
			fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.typ)
			switch v := l.val.(type) {
			case uint64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case float64:
				fmt.Fprintf(w, "%s %f\n", l.name, v)
			case uint32:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			}
			fmt.Fprintln(w)
		}

		// Latency summaries
		reqCount := atomic.LoadUint64(&m.metrics.RequestLatencyCount)
		if reqCount > 0 {
			avgMs := float64(atomic.LoadUint64(&m.metrics.RequestLatencySum)) / float64(reqCount) / 1e6
			fmt.Fprintf(w, "# HELP agent_request_latency_avg_ms Average request latency in milliseconds\n")
			fmt.Fprintf(w, "# TYPE agent_request_latency_avg_ms gauge\n")
			fmt.Fprintf(w, "agent_request_latency_avg_ms %f\n\n", avgMs)
		}

		toolCount := atomic.LoadUint64(&m.metrics.ToolLatencyCount)
		if toolCount > 0 {
			avgMs := float64(atomic.LoadUint64(&m.metrics.ToolLatencySum)) / float64(toolCount) / 1e6
			fmt.Fprintf(w, "# HELP agent_tool_latency_avg_ms Average tool execution latency in milliseconds\n")
			fmt.Fprintf(w, "# TYPE agent_tool_latency_avg_ms gauge\n")
			fmt.Fprintf(w, "agent_tool_latency_avg_ms %f\n\n", avgMs)
		}

		// Per-conversation-partner message counts, labeled by bare JID
		// (a 1:1 contact or a MUC room). Sorted so scrapes are stable.
		jidCounts := m.jidMessageCounts()
		if len(jidCounts) > 0 {
			jids := make([]string, 0, len(jidCounts))
			for jid := range jidCounts {
				jids = append(jids, jid)
			}
			sort.Strings(jids)

			fmt.Fprintf(w, "# HELP agent_jid_messages_total Messages processed per conversation partner\n")
			fmt.Fprintf(w, "# TYPE agent_jid_messages_total counter\n")
			for _, jid := range jids {
				// %q gives Go-style backslash/quote escaping, a safe
				// superset of what a Prometheus label value requires.
				fmt.Fprintf(w, "agent_jid_messages_total{jid=%q} %d\n", jid, jidCounts[jid])
			}
			fmt.Fprintln(w)
		}
	})
}
