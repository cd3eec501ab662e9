package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a malformed manifest: empty slot list or
// duplicate slot positions. Surfaced at construction time, before any
// resolution or assembly work.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid manifest: " + e.Reason
}

// Manifest is the validated, ordered collection of slots defining one
// packet's structure. Slots are sorted ascending by position at
// construction and never mutated afterward.
type Manifest struct {
	name  string
	slots []Slot
}

// New validates the slot list and returns a manifest with slots sorted
// ascending by position. It fails with a ValidationError when the list is
// empty or two slots share a position.
func New(name string, slots []Slot) (*Manifest, error) {
	if len(slots) == 0 {
		return nil, &ValidationError{Reason: "manifest has no slots"}
	}

	seen := make(map[int]bool, len(slots))
	var dupes []int
	for _, s := range slots {
		if seen[s.Position] {
			dupes = append(dupes, s.Position)
			continue
		}
		seen[s.Position] = true
	}
	if len(dupes) > 0 {
		sort.Ints(dupes)
		parts := make([]string, len(dupes))
		for i, d := range dupes {
			parts[i] = fmt.Sprintf("%d", d)
		}
		return nil, &ValidationError{
			Reason: "duplicate slot position: " + strings.Join(parts, ", "),
		}
	}

	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	return &Manifest{name: name, slots: sorted}, nil
}

// Name returns the manifest's display name.
func (m *Manifest) Name() string { return m.name }

// Slots returns the slots in ascending position order. Callers must not
// modify the returned slice.
func (m *Manifest) Slots() []Slot { return m.slots }

// Len returns the number of slots.
func (m *Manifest) Len() int { return len(m.slots) }

// PresenceMask builds a bitstring with one character per slot in manifest
// order: '1' if the slot's position is in the resolved set, '0' otherwise.
// Purely a reporting artifact, independent of the required flag.
func (m *Manifest) PresenceMask(resolved map[int]bool) string {
	var b strings.Builder
	b.Grow(len(m.slots))
	for _, s := range m.slots {
		if resolved[s.Position] {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// RequiredMissing returns the positions of required slots absent from the
// resolved set, in manifest order.
func (m *Manifest) RequiredMissing(resolved map[int]bool) []int {
	var missing []int
	for _, s := range m.slots {
		if s.Required && !resolved[s.Position] {
			missing = append(missing, s.Position)
		}
	}
	return missing
}
