package catalog

import "fmt"

// Channel identifies the contact channel a step uses.
type Channel string

const (
	ChannelStatement   Channel = "statement"
	ChannelSMS         Channel = "sms"
	ChannelEmail       Channel = "email"
	ChannelPhone       Channel = "phone"
	ChannelFinalNotice Channel = "final_notice"
	ChannelAgency      Channel = "agency"
)

// Step is one fixed checkpoint in the escalation pipeline.
type Step struct {
	Offset  int
	Channel Channel
	Action  string
}

// ErrUnknownOffset is returned for offsets outside the catalog. Callers must
// reject such input, never coerce it.
var ErrUnknownOffset = fmt.Errorf("offset is not a catalog step")

// steps is the single source of truth for the escalation pipeline. Every other
// component references steps by offset; no parallel tables exist elsewhere.
var steps = []Step{
	{Offset: 0, Channel: ChannelStatement, Action: "Mail initial balance statement"},
	{Offset: 7, Channel: ChannelSMS, Action: "Send SMS payment reminder"},
	{Offset: 14, Channel: ChannelEmail, Action: "Send email payment reminder"},
	{Offset: 30, Channel: ChannelPhone, Action: "Call patient about outstanding balance"},
	{Offset: 60, Channel: ChannelFinalNotice, Action: "Mail final notice before collections"},
	{Offset: 90, Channel: ChannelAgency, Action: "Refer account to collection agency"},
}

// Steps returns the six catalog entries in ascending offset order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Offsets returns the ordered day offsets {0,7,14,30,60,90}.
func Offsets() []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.Offset
	}
	return out
}

// StepAt returns the step definition for an exact catalog offset.
func StepAt(offset int) (Step, error) {
	for _, s := range steps {
		if s.Offset == offset {
			return s, nil
		}
	}
	return Step{}, fmt.Errorf("%w: %d", ErrUnknownOffset, offset)
}

// NextOffset returns the offset following the given one, or ok=false when the
// given offset is the terminal agency step.
func NextOffset(offset int) (int, bool) {
	for i, s := range steps {
		if s.Offset == offset {
			if i+1 < len(steps) {
				return steps[i+1].Offset, true
			}
			return 0, false
		}
	}
	return 0, false
}

// IndexOf returns the position of an offset within the catalog.
func IndexOf(offset int) (int, bool) {
	for i, s := range steps {
		if s.Offset == offset {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether offset is one of the six catalog offsets.
func Contains(offset int) bool {
	_, ok := IndexOf(offset)
	return ok
}

// FinalOffset returns the terminal agency offset.
func FinalOffset() int {
	return steps[len(steps)-1].Offset
}
