package game

import (
	"time"

	"go.uber.org/zap"
)

// Perf aggregates tick durations and logs the average and the load against
// the tick budget once per interval. Overruns are warned individually.
type Perf struct {
	enabled  bool
	every    time.Duration
	budget   time.Duration
	elapsed  time.Duration
	samples  []time.Duration
	overruns int
	log      *zap.Logger
}

func NewPerf(enabled bool, every, budget time.Duration, log *zap.Logger) *Perf {
	return &Perf{
		enabled: enabled,
		every:   every,
		budget:  budget,
		samples: make([]time.Duration, 0, 256),
		log:     log,
	}
}

// Record adds one tick's compute time; dt is the simulated time it covered.
// It reports whether a summary line was logged.
func (p *Perf) Record(took, dt time.Duration) bool {
	if took > p.budget {
		p.overruns++
		p.log.Warn("tick overrun", zap.Duration("took", took), zap.Duration("budget", p.budget))
	}
	if !p.enabled {
		return false
	}
	p.samples = append(p.samples, took)
	p.elapsed += dt
	if p.elapsed < p.every {
		return false
	}
	avg := p.Average()
	p.log.Info("tick perf",
		zap.Float64("avg_ms", float64(avg)/float64(time.Millisecond)),
		zap.Float64("load_pct", p.Load(avg)),
		zap.Int("ticks", len(p.samples)),
		zap.Int("overruns", p.overruns),
	)
	p.samples = p.samples[:0]
	p.elapsed = 0
	p.overruns = 0
	return true
}

// Average is the mean of the samples since the last summary.
func (p *Perf) Average() time.Duration {
	if len(p.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range p.samples {
		sum += s
	}
	return sum / time.Duration(len(p.samples))
}

// Load is avg as a percentage of the tick budget.
func (p *Perf) Load(avg time.Duration) float64 {
	if p.budget <= 0 {
		return 0
	}
	return float64(avg) / float64(p.budget) * 100
}
