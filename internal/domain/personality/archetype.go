// Package personality assigns a behavioral archetype to a subject, using a
// trained population model when one is available and ordered rules otherwise.
package personality

// Archetype identifiers.
const (
	LearningOriented   = "learning_oriented"
	ActiveExplorer     = "active_explorer"
	CreativeExpressive = "creative_expressive"
	StabilitySeeking   = "stability_seeking"
	FunSeeking         = "fun_seeking"
	CreativeExplorer   = "creative_explorer"
	Cautious           = "cautious"
	Balanced           = "balanced"
	InsufficientData   = "insufficient_data"
)

// Archetype is a predefined behavioral type.
type Archetype struct {
	ID              string
	Name            string
	Description     string
	Characteristics []string
	Color           string
	Recommendations []string
}

var catalog = map[string]Archetype{
	LearningOriented: {
		ID:              LearningOriented,
		Name:            "Learning-oriented",
		Description:     "Values educational purchases and spends in a structured, deliberate way.",
		Characteristics: []string{"high education share", "regular pattern", "careful choices"},
		Color:           "#4F46E5",
		Recommendations: []string{
			"Try educational board games or puzzles.",
			"Add more reading-related items.",
			"Keep a steady learning schedule.",
		},
	},
	ActiveExplorer: {
		ID:              ActiveExplorer,
		Name:            "Active explorer",
		Description:     "Enjoys many kinds of activities and buys actively across categories.",
		Characteristics: []string{"many categories", "frequent purchases", "likes new things"},
		Color:           "#059669",
		Recommendations: []string{
			"Consider gear for outdoor activities.",
			"Try new sports equipment.",
			"Plan a variety of hands-on experiences.",
		},
	},
	CreativeExpressive: {
		ID:              CreativeExpressive,
		Name:            "Creative expressive",
		Description:     "Likes making and expressing things and picks distinctive items.",
		Characteristics: []string{"creative items", "individual taste", "emotional choices"},
		Color:           "#DC2626",
		Recommendations: []string{
			"Art supplies or craft kits are a good fit.",
			"Consider music-related items.",
			"Encourage creative projects.",
		},
	},
	StabilitySeeking: {
		ID:              StabilitySeeking,
		Name:            "Stability-seeking",
		Description:     "Shows steady, restrained spending.",
		Characteristics: []string{"restrained spending", "prefers routine", "practical choices"},
		Color:           "#7C3AED",
		Recommendations: []string{
			"Help keep a consistent routine.",
			"Invest in good quality basics.",
			"Introduce changes gradually.",
		},
	},
	FunSeeking: {
		ID:              FunSeeking,
		Name:            "Fun-seeking",
		Description:     "Values enjoyable experiences and immediate satisfaction.",
		Characteristics: []string{"seeks fun", "emotional choices", "spontaneous purchases"},
		Color:           "#F59E0B",
		Recommendations: []string{
			"Look for fun items that also teach something.",
			"Reduce the snack share a little and explore other categories.",
			"Consider items that give longer-lasting satisfaction.",
		},
	},
	CreativeExplorer: {
		ID:              CreativeExplorer,
		Name:            "Creative explorer",
		Description:     "Explores new things and enjoys creative play.",
		Characteristics: []string{"values creativity", "curious", "varied experiences"},
		Color:           "#10B981",
		Recommendations: []string{
			"Provide more art and making tools.",
			"Try new categories for variety.",
			"Create a place to share finished creations.",
		},
	},
	Cautious: {
		ID:              Cautious,
		Name:            "Cautious chooser",
		Description:     "Spends carefully and according to plan.",
		Characteristics: []string{"careful decisions", "planned spending", "few purchases"},
		Color:           "#8B5CF6",
		Recommendations: []string{
			"Gradually increase how often purchases are made.",
			"Find an area of interest worth focusing on.",
			"Pick items with good value for money.",
		},
	},
	Balanced: {
		ID:              Balanced,
		Name:            "Balanced",
		Description:     "Shows balanced interest across many areas.",
		Characteristics: []string{"balanced spending", "varied interests", "adaptable"},
		Color:           "#06B6D4",
		Recommendations: []string{
			"Spending is well balanced.",
			"Consider small upgrades in each category.",
			"Make room to develop a new interest.",
		},
	},
	InsufficientData: {
		ID:              InsufficientData,
		Name:            "Not enough data",
		Description:     "A personality profile is available once enough purchases are recorded.",
		Characteristics: []string{},
		Color:           "#6B7280",
		Recommendations: []string{"More purchase data is needed."},
	},
}

// Lookup returns the archetype with id, or Balanced when unknown.
func Lookup(id string) Archetype {
	if a, ok := catalog[id]; ok {
		return a
	}
	return catalog[Balanced]
}

// Known reports whether id names a catalog entry.
func Known(id string) bool {
	_, ok := catalog[id]
	return ok
}

// DefaultClusterArchetypes maps cluster index to archetype for k <= 5.
var DefaultClusterArchetypes = []string{
	LearningOriented,
	ActiveExplorer,
	CreativeExpressive,
	StabilitySeeking,
	Balanced,
}
