package drama

import "time"

// cooldownTracker gates each trigger category behind a minimum elapsed
// time. Wall-clock based; clock monotonicity is assumed.
type cooldownTracker struct {
	window time.Duration
	last   map[string]time.Time
}

func newCooldownTracker(window time.Duration) *cooldownTracker {
	return &cooldownTracker{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// ready reports whether the category may fire at the given instant.
func (c *cooldownTracker) ready(category string, now time.Time) bool {
	last, ok := c.last[category]
	if !ok {
		return true
	}
	return now.Sub(last) >= c.window
}

// trigger restarts the category's cooldown.
func (c *cooldownTracker) trigger(category string, now time.Time) {
	c.last[category] = now
}

// remaining reports how long until the category is ready again.
func (c *cooldownTracker) remaining(category string, now time.Time) time.Duration {
	last, ok := c.last[category]
	if !ok {
		return 0
	}
	rem := c.window - now.Sub(last)
	if rem < 0 {
		return 0
	}
	return rem
}

// chaosMeter accumulates intensity and sheds it linearly over time, so
// sustained low-level activity does not keep re-triggering heavy effects.
type chaosMeter struct {
	level     float64
	decayRate float64 // percent of the current level shed per minute
	updated   time.Time
}

func newChaosMeter(decayRate float64) *chaosMeter {
	return &chaosMeter{decayRate: decayRate}
}

// add decays the level up to now, then folds in the new intensity, and
// returns the resulting level.
func (m *chaosMeter) add(intensity int, now time.Time) float64 {
	m.settle(now)
	m.level += float64(intensity)
	return m.level
}

// current returns the decayed level without adding anything.
func (m *chaosMeter) current(now time.Time) float64 {
	m.settle(now)
	return m.level
}

// reset zeroes the meter after a heavy effect has fired.
func (m *chaosMeter) reset(now time.Time) {
	m.level = 0
	m.updated = now
}

func (m *chaosMeter) settle(now time.Time) {
	if m.updated.IsZero() {
		m.updated = now
		return
	}
	minutes := now.Sub(m.updated).Minutes()
	if minutes > 0 {
		m.level -= m.level * (m.decayRate / 100) * minutes
		if m.level < 0 {
			m.level = 0
		}
	}
	m.updated = now
}
