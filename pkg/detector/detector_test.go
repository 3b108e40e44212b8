package detector

import (
	"fmt"
	"testing"

	"albumscan/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(weak, strong string) models.ItemIdentity {
	return models.ItemIdentity{WeakKey: weak, StrongKey: strong}
}

// run classifies a sequence, marking every novel item as captured
func run(d *Detector, seq []models.ItemIdentity) []Verdict {
	st := NewState()
	captured := 0
	var out []Verdict
	for _, item := range seq {
		dec := d.Classify(st, item, captured)
		out = append(out, dec.Verdict)
		if dec.Verdict == Novel {
			d.MarkCaptured(st, item)
			captured++
		}
		if dec.Verdict == LoopDetected {
			break
		}
	}
	return out
}

func TestStartKeyLoop(t *testing.T) {
	d := New(0)
	seq := []models.ItemIdentity{
		id("1", "/a"), id("2", "/b"), id("3", "/c"), id("4", "/d"), id("5", "/e"), id("1", "/a"),
	}

	verdicts := run(d, seq)
	require.Len(t, verdicts, 6)
	assert.Equal(t, []Verdict{Novel, Novel, Novel, Novel, Novel, LoopDetected}, verdicts)
}

func TestStartKeyNeedsCapture(t *testing.T) {
	d := New(0)
	st := NewState()

	// first item seeds the start key; seeing it again before any capture is not a loop
	assert.Equal(t, Absent, d.Classify(st, id("1", ""), 0).Verdict)
	assert.Equal(t, "1", st.StartWeakKey)
	assert.Equal(t, Absent, d.Classify(st, id("1", ""), 0).Verdict)

	dec := d.Classify(st, id("1", "/a"), 1)
	assert.Equal(t, LoopDetected, dec.Verdict)
	assert.Equal(t, ReasonStartReached, dec.Reason)
}

func TestStartKeySeededByFirstPresentWeakKey(t *testing.T) {
	d := New(0)
	st := NewState()

	d.Classify(st, id("", "/a"), 0)
	assert.Empty(t, st.StartWeakKey)
	d.Classify(st, id("7", "/b"), 1)
	assert.Equal(t, "7", st.StartWeakKey)
}

func TestConsecutiveDuplicateThreshold(t *testing.T) {
	d := New(3)

	t.Run("two unchanged iterations do not loop", func(t *testing.T) {
		verdicts := run(d, []models.ItemIdentity{id("", "/k"), id("", "/k"), id("", "/k")})
		assert.Equal(t, []Verdict{Novel, DuplicateSkip, DuplicateSkip}, verdicts)
	})

	t.Run("third unchanged iteration loops", func(t *testing.T) {
		st := NewState()
		verdicts := []Verdict{}
		for i := 0; i < 4; i++ {
			dec := d.Classify(st, id("", "/k"), 1)
			verdicts = append(verdicts, dec.Verdict)
			if dec.Verdict == Novel {
				d.MarkCaptured(st, id("", "/k"))
			}
		}
		assert.Equal(t, []Verdict{Novel, DuplicateSkip, DuplicateSkip, LoopDetected}, verdicts)
		assert.Equal(t, 3, st.ConsecutiveDuplicates)
	})

	t.Run("change resets the counter", func(t *testing.T) {
		verdicts := run(d, []models.ItemIdentity{
			id("", "/k"), id("", "/k"), id("", "/k"), id("", "/j"), id("", "/k"), id("", "/k"), id("", "/k"),
		})
		assert.NotContains(t, verdicts, LoopDetected)
	})
}

func TestSeenSetSkips(t *testing.T) {
	d := New(0)
	verdicts := run(d, []models.ItemIdentity{id("1", "/a"), id("2", "/b"), id("3", "/a"), id("4", "/c")})
	assert.Equal(t, []Verdict{Novel, Novel, DuplicateSkip, Novel}, verdicts)
}

func TestFailedCaptureIsNotSeen(t *testing.T) {
	d := New(0)
	st := NewState()

	// first visit classified novel but never marked
	assert.Equal(t, Novel, d.Classify(st, id("1", "/a"), 0).Verdict)
	assert.Equal(t, Novel, d.Classify(st, id("2", "/b"), 0).Verdict)
	assert.Equal(t, Novel, d.Classify(st, id("3", "/a"), 0).Verdict)
	assert.False(t, st.Seen("/a"))
}

func TestReplayIsDeterministic(t *testing.T) {
	d := New(0)
	var seq []models.ItemIdentity
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("/img/%d", i%13)
		seq = append(seq, id(fmt.Sprint(i%17+2), key))
	}

	first := run(d, seq)
	second := run(d, seq)
	assert.Equal(t, first, second)
}

func TestNoDuplicateStrongKeysInOutput(t *testing.T) {
	d := New(0)
	st := NewState()
	captured := map[string]int{}

	seq := []string{"/a", "/b", "/a", "/c", "/b", "/d", "/a"}
	for i, key := range seq {
		item := id(fmt.Sprint(i+100), key)
		if d.Classify(st, item, len(captured)).Verdict == Novel {
			d.MarkCaptured(st, item)
			captured[key]++
		}
	}

	for key, n := range captured {
		assert.Equal(t, 1, n, key)
	}
	assert.Len(t, captured, 4)
	assert.Len(t, st.SeenStrongKeys, 4)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "novel", Novel.String())
	assert.Equal(t, "duplicate", DuplicateSkip.String())
	assert.Equal(t, "loop", LoopDetected.String())
	assert.Equal(t, "absent", Absent.String())
}
