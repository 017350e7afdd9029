package mastery

import "sort"

// State maps skill id to the probability that the skill is mastered.
// Lookups are by key; map order carries no meaning.
type State map[string]float64

// Clone returns a copy. Cloning a nil state yields an empty, writable one.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Skills returns the skill ids in ascending order.
func (s State) Skills() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Level is a coarse label for a mastery probability, used for display.
type Level string

const (
	LevelNovice     Level = "novice"
	LevelLearning   Level = "learning"
	LevelProficient Level = "proficient"
	LevelMastered   Level = "mastered"
)

// LevelOf buckets a mastery probability.
func LevelOf(p float64) Level {
	switch {
	case p >= 0.95:
		return LevelMastered
	case p >= 0.8:
		return LevelProficient
	case p >= 0.4:
		return LevelLearning
	default:
		return LevelNovice
	}
}
