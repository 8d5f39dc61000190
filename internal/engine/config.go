package engine

// Config carries the per-practice escalation settings the engine reads at tick
// time. It is supplied by the caller on every tick; the engine owns none of it.
type Config struct {
	// AutoEscalation gates all tick-driven advancement. When false a sequence
	// only moves via an explicit manual escalate command.
	AutoEscalation bool
	// Delays overrides the elapsed-day threshold for reaching a given catalog
	// offset. Missing entries fall back to the offset itself.
	Delays map[int]int
}

// DelayFor returns the elapsed-day threshold required to reach offset.
func (c Config) DelayFor(offset int) int {
	if d, ok := c.Delays[offset]; ok && d >= 0 {
		return d
	}
	return offset
}
