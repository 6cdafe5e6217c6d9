package overbroth

import "fmt"

// Refinement defaults.
const (
	// DefaultInitialBudget is the iteration budget of the first pass.
	DefaultInitialBudget = 128

	// DefaultMaxPriority is the highest priority level a refinement chain
	// can reach. Levels 0..DefaultMaxPriority exist in the scheduler.
	DefaultMaxPriority = 15

	// LeafSize is the block edge below which a block is evaluated directly
	// at the full budget instead of being split.
	LeafSize = 4
)

// Policy decides how an unresolved block is resubmitted.
//
// Each resubmission doubles the iteration budget (capped at the target) and
// moves one priority level down the queue (capped at MaxPriority). Blocks
// that resolve early never leave their low level, so every region of the
// image gets a cheap pass before any region receives a larger budget.
type Policy struct {
	InitialBudget int
	MaxPriority   int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		InitialBudget: DefaultInitialBudget,
		MaxPriority:   DefaultMaxPriority,
	}
}

// Levels returns the number of scheduler priority levels the policy needs.
func (p Policy) Levels() int {
	return p.MaxPriority + 1
}

// Initial returns the first-pass budget for a run with the given target.
func (p Policy) Initial(target int) int {
	return max(1, min(p.InitialBudget, target))
}

// Next returns the budget and priority for the next refinement generation.
// The budget strictly increases while cur < target and never exceeds it.
func (p Policy) Next(cur, target, priority int) (nextCur, nextPriority int) {
	nextCur = target
	if cur <= target/2 {
		nextCur = cur * 2
	}
	return nextCur, min(priority+1, p.MaxPriority)
}

// Steps returns how many refinement generations separate the initial budget
// from target.
func (p Policy) Steps(target int) int {
	steps := 0
	for cur := p.Initial(target); cur < target; cur, _ = p.Next(cur, target, 0) {
		steps++
	}
	return steps
}

func (p Policy) validate() error {
	if p.InitialBudget < 1 {
		return fmt.Errorf("%w: initial budget %d < 1", ErrInvalidConfig, p.InitialBudget)
	}
	if p.MaxPriority < 0 {
		return fmt.Errorf("%w: max priority %d < 0", ErrInvalidConfig, p.MaxPriority)
	}
	return nil
}
