package detector

import (
	"albumscan/pkg/models"
)

// Verdict is the classification of one observed identity
type Verdict int

const (
	// Novel items should be captured
	Novel Verdict = iota
	// DuplicateSkip items were captured before; traversal continues
	DuplicateSkip
	// LoopDetected ends traversal
	LoopDetected
	// Absent means no active item could be located this iteration
	Absent
)

func (v Verdict) String() string {
	switch v {
	case Novel:
		return "novel"
	case DuplicateSkip:
		return "duplicate"
	case LoopDetected:
		return "loop"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// Loop reasons
const (
	ReasonStartReached = "start reached"
	ReasonSameItem     = "same item"
)

// DefaultThreshold is the number of unchanged iterations that counts as a loop
const DefaultThreshold = 3

// Decision is a verdict plus, for loops, which signal fired
type Decision struct {
	Verdict Verdict
	Reason  string
}

// State is the mutable traversal state owned by one session
type State struct {
	StartWeakKey          string
	LastStrongKey         string
	ConsecutiveDuplicates int
	Iterations            int
	SeenWeakKeys          map[string]struct{}
	SeenStrongKeys        map[string]struct{}
	Running               bool
}

// NewState returns an empty, running state
func NewState() *State {
	return &State{
		SeenWeakKeys:   make(map[string]struct{}),
		SeenStrongKeys: make(map[string]struct{}),
		Running:        true,
	}
}

// Seen reports whether a strong key was already captured
func (s *State) Seen(strongKey string) bool {
	_, ok := s.SeenStrongKeys[strongKey]
	return ok
}

// Detector combines the start-key, consecutive-duplicate and seen-set
// signals into a single verdict per iteration.
type Detector struct {
	Threshold int
}

// New creates a detector; threshold <= 0 uses DefaultThreshold
func New(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{Threshold: threshold}
}

// CheckStart applies the start-key rule. It runs before the active item is
// located, so it only needs the weak key. On the first observation of a
// weak key it seeds StartWeakKey.
func (d *Detector) CheckStart(st *State, weakKey string, captured int) (Decision, bool) {
	if weakKey == "" {
		return Decision{}, false
	}
	if st.StartWeakKey != "" && weakKey == st.StartWeakKey && captured >= 1 {
		return Decision{Verdict: LoopDetected, Reason: ReasonStartReached}, true
	}
	if st.StartWeakKey == "" {
		st.StartWeakKey = weakKey
	}
	return Decision{}, false
}

// ClassifyItem applies the consecutive-duplicate and seen-set rules to the
// strong key of the located item.
func (d *Detector) ClassifyItem(st *State, strongKey string) Decision {
	if strongKey == "" {
		return Decision{Verdict: Absent}
	}

	if strongKey == st.LastStrongKey {
		st.ConsecutiveDuplicates++
		if st.ConsecutiveDuplicates >= d.Threshold {
			return Decision{Verdict: LoopDetected, Reason: ReasonSameItem}
		}
	} else {
		st.ConsecutiveDuplicates = 0
		st.LastStrongKey = strongKey
	}

	if st.Seen(strongKey) {
		return Decision{Verdict: DuplicateSkip}
	}
	return Decision{Verdict: Novel}
}

// Classify runs both steps for one identity
func (d *Detector) Classify(st *State, id models.ItemIdentity, captured int) Decision {
	if dec, loop := d.CheckStart(st, id.WeakKey, captured); loop {
		return dec
	}
	return d.ClassifyItem(st, id.StrongKey)
}

// MarkCaptured records a successfully captured identity. Failed captures
// are not marked so the item can still be captured on a later visit.
func (d *Detector) MarkCaptured(st *State, id models.ItemIdentity) {
	if id.StrongKey != "" {
		st.SeenStrongKeys[id.StrongKey] = struct{}{}
	}
	if id.WeakKey != "" {
		st.SeenWeakKeys[id.WeakKey] = struct{}{}
	}
}
