package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CounterFunc reports a component's current goroutine or worker count
type CounterFunc func() int

// MonitorOptions configure a GoroutineMonitor
type MonitorOptions struct {
	CheckInterval  time.Duration // default 30s
	AlertThreshold int           // default 1000
	AlertCooldown  time.Duration // default 5m
	Logger         zerolog.Logger
}

// GoroutineMonitor samples the process goroutine count and registered component
// counters, and warns when the count passes a threshold
type GoroutineMonitor struct {
	mu             sync.RWMutex
	baseline       int
	current        int
	peak           int
	checkInterval  time.Duration
	alertThreshold int
	alertCooldown  time.Duration
	lastAlert      time.Time
	components     map[string]CounterFunc
	counts         map[string]int
	logger         zerolog.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewGoroutineMonitor creates a stopped monitor with the current count as baseline
func NewGoroutineMonitor(opts MonitorOptions) *GoroutineMonitor {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 30 * time.Second
	}
	if opts.AlertThreshold <= 0 {
		opts.AlertThreshold = 1000
	}
	if opts.AlertCooldown <= 0 {
		opts.AlertCooldown = 5 * time.Minute
	}
	baseline := runtime.NumGoroutine()
	return &GoroutineMonitor{
		baseline:       baseline,
		current:        baseline,
		peak:           baseline,
		checkInterval:  opts.CheckInterval,
		alertThreshold: opts.AlertThreshold,
		alertCooldown:  opts.AlertCooldown,
		components:     make(map[string]CounterFunc),
		counts:         make(map[string]int),
		logger:         opts.Logger.With().Str("component", "goroutine_monitor").Logger(),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// RegisterComponent adds a counter sampled on every check
func (gm *GoroutineMonitor) RegisterComponent(name string, count CounterFunc) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.components[name] = count
}

// Start begins monitoring in a background goroutine
func (gm *GoroutineMonitor) Start() {
	go gm.monitor()
	gm.logger.Info().
		Int("baseline", gm.baseline).
		Dur("interval", gm.checkInterval).
		Msg("Started goroutine monitoring")
}

// Stop stops the monitor and waits for its goroutine
func (gm *GoroutineMonitor) Stop() {
	gm.stopOnce.Do(func() { close(gm.stopChan) })
	<-gm.done
}

func (gm *GoroutineMonitor) monitor() {
	defer close(gm.done)
	ticker := time.NewTicker(gm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.Check()
		case <-gm.stopChan:
			return
		}
	}
}

// Check samples every counter once and logs the result
func (gm *GoroutineMonitor) Check() {
	current := runtime.NumGoroutine()

	gm.mu.Lock()
	gm.current = current
	if current > gm.peak {
		gm.peak = current
	}
	for name, fn := range gm.components {
		gm.counts[name] = gm.sample(name, fn)
	}
	growth := current - gm.baseline
	growthRate := float64(growth) / float64(gm.baseline) * 100

	shouldAlert := current > gm.alertThreshold && time.Since(gm.lastAlert) > gm.alertCooldown
	if shouldAlert {
		gm.lastAlert = time.Now()
	}
	counts := copyMap(gm.counts)
	peak := gm.peak
	gm.mu.Unlock()

	ev := gm.logger.Debug().
		Int("current", current).
		Int("baseline", gm.baseline).
		Int("peak", peak).
		Float64("growth_rate", growthRate)
	for _, name := range sortedKeys(counts) {
		ev = ev.Int(name, counts[name])
	}
	ev.Msg("Goroutine metrics")

	if shouldAlert {
		gm.logger.Warn().
			Int("current", current).
			Int("threshold", gm.alertThreshold).
			Float64("growth_rate", growthRate).
			Msg("High goroutine count detected - possible leak")
	}
}

// sample calls a counter, treating a panic as -1
func (gm *GoroutineMonitor) sample(name string, fn CounterFunc) (n int) {
	defer func() {
		if r := recover(); r != nil {
			gm.logger.Error().Str("counter", name).Interface("panic", r).Msg("Counter panicked")
			n = -1
		}
	}()
	return fn()
}

// GetMetrics returns the last sampled metrics
func (gm *GoroutineMonitor) GetMetrics() GoroutineMetrics {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return GoroutineMetrics{
		Current:         gm.current,
		Baseline:        gm.baseline,
		Peak:            gm.peak,
		Growth:          gm.current - gm.baseline,
		ComponentCounts: copyMap(gm.counts),
	}
}

// GoroutineMetrics contains goroutine statistics
type GoroutineMetrics struct {
	Current         int            `json:"current"`
	Baseline        int            `json:"baseline"`
	Peak            int            `json:"peak"`
	Growth          int            `json:"growth"`
	ComponentCounts map[string]int `json:"component_counts"`
}

func copyMap(m map[string]int) map[string]int {
	result := make(map[string]int, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
