package sim

// flushTelemetry emits a window of stats when the window boundary is reached.
func (r *Runner) flushTelemetry() {
	tick := r.sys.Tick()
	if !r.collector.ShouldFlush(tick) {
		return
	}

	stats := r.collector.Flush(tick, r.sys.Particles(), r.sys.Settings())
	perfStats := r.perf.Stats()
	r.lastStats = stats

	if r.statsCallback != nil {
		r.statsCallback(stats)
	}

	if r.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := r.output.WriteTelemetry(stats); err != nil {
		r.log.Error("failed to write telemetry", "error", err)
	}
	if err := r.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		r.log.Error("failed to write perf", "error", err)
	}
}
