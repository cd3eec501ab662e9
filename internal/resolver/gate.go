package resolver

// ResolvedPositions collects the slot positions that resolved, for
// presence-mask and gate computation.
func ResolvedPositions(resolutions []Resolution) map[int]bool {
	resolved := make(map[int]bool, len(resolutions))
	for _, res := range resolutions {
		if !res.Missing {
			resolved[res.Slot.Position] = true
		}
	}
	return resolved
}

// CheckRequired returns the positions of required slots that did not
// resolve, in input order. A non-empty result must abort the pipeline
// before any download or assembly work. Missing optional slots are
// dropped silently and never trip the gate.
func CheckRequired(resolutions []Resolution) []int {
	var missing []int
	for _, res := range resolutions {
		if res.Slot.Required && res.Missing {
			missing = append(missing, res.Slot.Position)
		}
	}
	return missing
}
