package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"nabz/internal/models"
)

// AdminNotifier receives critical alerts on the administrative channel.
// Delivery is fire-and-forget.
type AdminNotifier interface {
	NotifyCritical(alert models.Alert)
}

// SnapshotBroadcaster receives every freshly collected snapshot.
type SnapshotBroadcaster interface {
	BroadcastSnapshot(snap models.MetricSnapshot)
}

// MonitorOptions tunes the three schedules. The intervals are
// configuration, not contracts; zero values fall back to the defaults.
type MonitorOptions struct {
	CollectInterval  time.Duration
	AlertInterval    time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
	ThroughputWindow time.Duration
}

func (o MonitorOptions) withDefaults() MonitorOptions {
	if o.CollectInterval <= 0 {
		o.CollectInterval = 10 * time.Second
	}
	if o.AlertInterval <= 0 {
		o.AlertInterval = 60 * time.Second
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = 300 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	if o.ThroughputWindow <= 0 {
		o.ThroughputWindow = 60 * time.Second
	}
	return o
}

// Monitor is the serialized core of the agent. One goroutine (Run) owns the
// metric store and is the only drainer of the sample buffer; collection,
// alert evaluation, cleanup, and every query execute on that goroutine, one
// at a time, so readers always observe fully-formed snapshots and alert
// sets. Producers never enter the loop: the record methods touch only the
// buffer's own mutex.
type Monitor struct {
	opts        MonitorOptions
	buffer      *SampleBuffer
	probes      *ProbeSet
	store       *MetricStore
	evaluator   *AlertEvaluator
	notifier    AdminNotifier
	broadcaster SnapshotBroadcaster
	emitter     *TelemetryEmitter
	logger      *zap.Logger
	now         func() time.Time

	requests chan func()
	stopped  chan struct{}
}

// NewMonitor wires the monitor. Notifier, broadcaster, and emitter may be
// nil; the corresponding deliveries are skipped.
func NewMonitor(opts MonitorOptions, buffer *SampleBuffer, probes *ProbeSet, evaluator *AlertEvaluator,
	notifier AdminNotifier, broadcaster SnapshotBroadcaster, emitter *TelemetryEmitter, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer == nil {
		buffer = NewSampleBuffer()
	}
	if probes == nil {
		probes = NewProbeSet(0, logger)
	}
	if evaluator == nil {
		evaluator = NewAlertEvaluator(DefaultThresholds())
	}
	return &Monitor{
		opts:        opts.withDefaults(),
		buffer:      buffer,
		probes:      probes,
		store:       NewMetricStore(),
		evaluator:   evaluator,
		notifier:    notifier,
		broadcaster: broadcaster,
		emitter:     emitter,
		logger:      logger,
		now:         time.Now,
		requests:    make(chan func(), 64),
		stopped:     make(chan struct{}),
	}
}

// Run drives the three schedules until the context is cancelled. It blocks;
// callers start it on its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("performance monitor started",
		zap.Duration("collect_interval", m.opts.CollectInterval),
		zap.Duration("alert_interval", m.opts.AlertInterval),
		zap.Duration("cleanup_interval", m.opts.CleanupInterval),
		zap.Duration("retention", m.opts.Retention))

	collect := time.NewTicker(m.opts.CollectInterval)
	defer collect.Stop()
	alertCheck := time.NewTicker(m.opts.AlertInterval)
	defer alertCheck.Stop()
	cleanup := time.NewTicker(m.opts.CleanupInterval)
	defer cleanup.Stop()

	defer close(m.stopped)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("performance monitor stopped")
			return
		case <-collect.C:
			m.collect(ctx)
		case <-alertCheck.C:
			m.checkAlerts()
		case <-cleanup.C:
			m.cleanup()
		case fn := <-m.requests:
			fn()
		}
	}
}

// RecordResponseTime enqueues one operation timing. Non-blocking, safe from
// any goroutine, never fails.
func (m *Monitor) RecordResponseTime(operation string, durationMS float64) {
	m.buffer.RecordResponseTime(operation, durationMS)
}

// RecordError counts one error occurrence. Same guarantees as
// RecordResponseTime.
func (m *Monitor) RecordError(errType, detail string) {
	m.buffer.RecordError(errType, detail)
}

// collect drains the buffer, polls every probe, and appends one immutable
// snapshot. A slow probe delays this tick (bounded by the per-probe
// timeout) but never blocks producers or queued queries beyond that.
func (m *Monitor) collect(ctx context.Context) {
	now := m.now()
	samples, errorKeys := m.buffer.Drain()

	responseTimes := make(map[string]models.OperationStats, len(samples))
	var logEntries []models.SampleLogEntry
	for op, list := range samples {
		durations := make([]float64, len(list))
		for i, s := range list {
			durations[i] = s.DurationMS
			logEntries = append(logEntries, models.SampleLogEntry{
				Timestamp:  s.ObservedAt,
				Operation:  op,
				DurationMS: s.DurationMS,
			})
		}
		responseTimes[op] = AggregateOperation(durations)
	}
	sort.Slice(logEntries, func(i, j int) bool {
		return logEntries[i].Timestamp.Before(logEntries[j].Timestamp)
	})

	errorCounts := make(map[string]int64, len(errorKeys))
	for key, count := range errorKeys {
		errorCounts[key.Type] += count
	}

	snap := models.MetricSnapshot{
		Timestamp:     now,
		ResponseTimes: responseTimes,
		ErrorCounts:   errorCounts,
		Cache:         m.probes.CollectCache(ctx),
		Messaging:     m.probes.CollectMessaging(ctx),
		System:        m.probes.CollectSystem(ctx),
		Database:      m.probes.CollectDatabase(ctx),
		Realtime:      m.probes.CollectRealtime(ctx),
	}
	snap.ActiveConnections = snap.Realtime.ActiveSockets

	m.store.AppendSamples(logEntries)
	window := m.opts.ThroughputWindow
	snap.MessageThroughput = float64(m.store.CountSamplesSince(now.Add(-window))) / window.Seconds()

	m.store.Append(snap)

	if m.broadcaster != nil {
		m.broadcaster.BroadcastSnapshot(snap)
	}
	m.emitTelemetry(snap)
}

// emitTelemetry pushes the fixed metrics tuple, best-effort on a separate
// goroutine so a slow collector cannot stretch the collection tick.
func (m *Monitor) emitTelemetry(snap models.MetricSnapshot) {
	if m.emitter == nil {
		return
	}
	payload := TelemetryPayload{
		ResponseTimeAvgMS:  avgOfOperationAvgs(snap),
		CacheHitRatio:      snap.Cache.HitRatio,
		MemoryUsagePercent: snap.System.Memory.UsagePercent,
		ActiveConnections:  snap.ActiveConnections,
		ErrorRate:          float64(sumErrorCounts(snap)),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()
		if err := m.emitter.Emit(ctx, payload); err != nil {
			m.logger.Warn("telemetry emission failed", zap.Error(err))
		}
	}()
}

// checkAlerts evaluates the rule table against the freshest snapshot,
// stores every alert, and pushes criticals to the admin channel.
func (m *Monitor) checkAlerts() {
	snap, ok := m.store.Latest()
	if !ok {
		return
	}
	alerts := m.evaluator.Evaluate(snap)
	for _, alert := range alerts {
		m.store.InsertAlert(alert)
		if alert.Severity == models.SeverityCritical && m.notifier != nil {
			m.notifier.NotifyCritical(alert)
		}
		m.logger.Warn("alert raised",
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message))
	}
}

// cleanup prunes everything past the retention window.
func (m *Monitor) cleanup() {
	cutoff := m.now().Add(-m.opts.Retention)
	removed := m.store.Prune(cutoff)
	m.logger.Info("retention cleanup", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
}

// call executes fn on the monitor goroutine and waits for it. It returns
// false when the monitor has stopped, leaving fn's outputs at their zero
// values.
func (m *Monitor) call(fn func()) bool {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case m.requests <- wrapped:
	case <-m.stopped:
		return false
	}
	select {
	case <-done:
		return true
	case <-m.stopped:
		return false
	}
}

// CurrentMetrics returns the latest snapshot. ok is false when nothing has
// been collected yet or the monitor has stopped.
func (m *Monitor) CurrentMetrics() (models.MetricSnapshot, bool) {
	var snap models.MetricSnapshot
	var has bool
	if !m.call(func() { snap, has = m.store.Latest() }) {
		return models.MetricSnapshot{}, false
	}
	return snap, has
}

// MetricsHistory returns all snapshots from the last minutesBack minutes in
// ascending timestamp order.
func (m *Monitor) MetricsHistory(minutesBack int) []models.MetricSnapshot {
	if minutesBack <= 0 {
		minutesBack = 60
	}
	var history []models.MetricSnapshot
	m.call(func() {
		since := m.now().Add(-time.Duration(minutesBack) * time.Minute)
		history = m.store.RangeSince(since)
	})
	return history
}

// ActiveAlerts returns every unacknowledged alert, newest first.
func (m *Monitor) ActiveAlerts() []models.Alert {
	var alerts []models.Alert
	m.call(func() { alerts = m.store.ActiveAlerts() })
	return alerts
}

// AcknowledgeAlert marks an alert handled. Unknown ids are a no-op.
func (m *Monitor) AcknowledgeAlert(id string) {
	m.call(func() { m.store.Acknowledge(id) })
}

// DashboardData builds the dashboard composite. Before the first collection
// tick it returns the all-zero shape rather than an error.
func (m *Monitor) DashboardData() models.DashboardData {
	data := models.DashboardData{
		Trends: make(map[string]models.TrendDirection),
	}
	m.call(func() {
		snap, has := m.store.Latest()
		if !has {
			return
		}
		data.Current = snap
		data.RecentAlerts = m.store.RecentAlerts(10)
		data.Health = ComputeHealthScore(snap)
		data.Trends = m.computeTrends()
		data.Bottlenecks = IdentifyBottlenecks(snap)
	})
	return data
}

// computeTrends classifies the last half hour of snapshots. Runs on the
// monitor goroutine.
func (m *Monitor) computeTrends() map[string]models.TrendDirection {
	history := m.store.RangeSince(m.now().Add(-30 * time.Minute))

	cpu := make([]float64, len(history))
	memory := make([]float64, len(history))
	response := make([]float64, len(history))
	throughput := make([]float64, len(history))
	for i, snap := range history {
		cpu[i] = snap.System.CPUUsagePercent
		memory[i] = snap.System.Memory.UsagePercent
		response[i] = avgOfOperationAvgs(snap)
		throughput[i] = snap.MessageThroughput
	}
	return map[string]models.TrendDirection{
		"cpu":           Trend(cpu),
		"memory":        Trend(memory),
		"response_time": Trend(response),
		"throughput":    Trend(throughput),
	}
}

func avgOfOperationAvgs(snap models.MetricSnapshot) float64 {
	if len(snap.ResponseTimes) == 0 {
		return 0
	}
	sum := 0.0
	for _, op := range snap.ResponseTimes {
		sum += op.AvgMS
	}
	return sum / float64(len(snap.ResponseTimes))
}

func sumErrorCounts(snap models.MetricSnapshot) int64 {
	var total int64
	for _, c := range snap.ErrorCounts {
		total += c
	}
	return total
}
