package engine

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// Projection is the derived time view of a sequence at a given instant.
type Projection struct {
	ElapsedDays    int
	StepIndex      int
	DayInStep      int
	NextActionDate *time.Time
}

// Project converts a sequence and an explicit now into elapsed days, the
// current catalog position, and the next scheduled action date. The clock is
// never read internally; now always comes from the caller.
func Project(seq *domain.Sequence, now time.Time) (Projection, error) {
	if err := seq.Validate(); err != nil {
		return Projection{}, err
	}

	// Clock skew or a backdated record clamps to day zero instead of going negative.
	elapsed := int(now.Sub(seq.StartedAt).Hours() / 24)
	if elapsed < 0 {
		elapsed = 0
	}

	idx, _ := catalog.IndexOf(seq.CurrentStepOffset)

	dayInStep := elapsed - seq.CurrentStepOffset
	if dayInStep < 0 {
		dayInStep = 0
	}

	proj := Projection{
		ElapsedDays: elapsed,
		StepIndex:   idx,
		DayInStep:   dayInStep,
	}
	if next, ok := catalog.NextOffset(seq.CurrentStepOffset); ok {
		date := seq.StartedAt.AddDate(0, 0, next)
		proj.NextActionDate = &date
	}
	return proj, nil
}
