package solver

// Classify derives the mobility of a student from its tags and the option
// pool alone; the current roster plays no part.
func Classify(s Student, pools OptionPool) Mobility {
	if s.Association != "" {
		return GroupLocked
	}
	if classes, constrained := pools.Resolve(s.keys()...); constrained && len(classes) <= 1 {
		return Fixed
	}
	if s.Dissociation != "" {
		return SwappableConditional
	}
	return SwappableFree
}

func CountMobility(students []Student, pools OptionPool) map[Mobility]int {
	counts := map[Mobility]int{}
	for _, s := range students {
		counts[Classify(s, pools)]++
	}
	return counts
}
