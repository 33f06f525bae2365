package insights

import "github.com/okian/spendlens/internal/domain/personality"

var suggestions = map[string][]string{
	personality.LearningOriented: {
		"Introduce more advanced learning tools step by step.",
		"Set up a space that encourages self-directed study.",
	},
	personality.ActiveExplorer: {
		"Add activities that build stamina.",
		"Consider group activities that build teamwork.",
	},
	personality.CreativeExpressive: {
		"Provide tools that help with self-expression.",
		"Offer varied experiences that spark imagination.",
	},
	personality.CreativeExplorer: {
		"Provide tools that help with self-expression.",
		"Offer varied experiences that spark imagination.",
	},
}

// Suggestions returns development suggestions for an archetype; other
// archetypes get none.
func Suggestions(archetype string) []string {
	out := []string{}
	return append(out, suggestions[archetype]...)
}
