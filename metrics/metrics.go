// Package metrics instruments the worker's slot loop the way the
// teacher's own metrics package instruments the miner: a small set of
// counters/gauges updated inline by the hot path, periodically flushed
// to an InfluxDB reporter, alongside host-level stats collected via
// elastic/gosigar (chosen over the pack's other host-stats dependency,
// shirou/gopsutil, since the teacher never imports the latter and
// gosigar already covers the memory/load fields this package needs).
package metrics

import (
	"sync"
	"time"

	client "github.com/influxdata/influxdb/client/v2"
	"github.com/liveevilll/massa/xlog"
	sigar "github.com/elastic/gosigar"
)

var log = xlog.Root.New("metrics")

// WorkerMetrics is the fixed set of counters/gauges the worker updates
// inline during its event loop. All fields are accessed under mu, since
// the reporter goroutine reads them concurrently with the worker's
// single-goroutine writes.
type WorkerMetrics struct {
	mu sync.Mutex

	SlotTicks          uint64
	BlocksCreated      uint64
	BlocksSkippedNotUs uint64
	OperationsIncluded uint64
	BlocksReceived     uint64
	AttacksDetected    uint64
}

func New() *WorkerMetrics { return &WorkerMetrics{} }

func (m *WorkerMetrics) IncSlotTick() {
	m.mu.Lock()
	m.SlotTicks++
	m.mu.Unlock()
}

func (m *WorkerMetrics) IncBlockCreated(operationCount int) {
	m.mu.Lock()
	m.BlocksCreated++
	m.OperationsIncluded += uint64(operationCount)
	m.mu.Unlock()
}

func (m *WorkerMetrics) IncBlockSkippedNotUs() {
	m.mu.Lock()
	m.BlocksSkippedNotUs++
	m.mu.Unlock()
}

func (m *WorkerMetrics) IncBlockReceived() {
	m.mu.Lock()
	m.BlocksReceived++
	m.mu.Unlock()
}

func (m *WorkerMetrics) IncAttackDetected() {
	m.mu.Lock()
	m.AttacksDetected++
	m.mu.Unlock()
}

func (m *WorkerMetrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"slot_ticks":           m.SlotTicks,
		"blocks_created":       m.BlocksCreated,
		"blocks_skipped_not_us": m.BlocksSkippedNotUs,
		"operations_included":  m.OperationsIncluded,
		"blocks_received":      m.BlocksReceived,
		"attacks_detected":     m.AttacksDetected,
	}
}

// InfluxReporter periodically writes a WorkerMetrics snapshot plus host
// stats to an InfluxDB instance, grounded on the teacher's
// metrics-reporting goroutine shape (a ticker-driven loop under a
// cancellable stop channel).
type InfluxReporter struct {
	c        client.Client
	database string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewInfluxReporter dials addr (e.g. "http://localhost:8086") and
// returns a reporter that is not yet running; call Start to begin
// flushing on interval.
func NewInfluxReporter(addr, username, password, database string, interval time.Duration) (*InfluxReporter, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return &InfluxReporter{
		c:        c,
		database: database,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the reporting goroutine, sampling m and host stats
// every interval until Stop is called.
func (r *InfluxReporter) Start(m *WorkerMetrics) {
	go r.loop(m)
}

func (r *InfluxReporter) loop(m *WorkerMetrics) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.flush(m); err != nil {
				log.Warn("influx flush failed", "err", err)
			}
		case <-r.stop:
			return
		}
	}
}

func (r *InfluxReporter) flush(m *WorkerMetrics) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: r.database})
	if err != nil {
		return err
	}

	workerPoint, err := client.NewPoint("worker", nil, m.snapshot(), time.Now())
	if err != nil {
		return err
	}
	bp.AddPoint(workerPoint)

	hostPoint, err := client.NewPoint("host", nil, hostStats(), time.Now())
	if err != nil {
		return err
	}
	bp.AddPoint(hostPoint)

	return r.c.Write(bp)
}

// hostStats samples memory and load average via gosigar, the same collaborator
// the teacher's cmd-level status reporting was headed toward before its
// metrics subsystem was pruned for this domain (see the design ledger).
func hostStats() map[string]interface{} {
	mem := sigar.Mem{}
	_ = mem.Get()

	load := sigar.LoadAverage{}
	_ = load.Get()

	return map[string]interface{}{
		"mem_used":    mem.Used,
		"mem_free":    mem.Free,
		"load1":       load.One,
		"load5":       load.Five,
		"load15":      load.Fifteen,
	}
}

// Stop halts the reporting goroutine and blocks until it has exited.
func (r *InfluxReporter) Stop() {
	close(r.stop)
	<-r.done
}
