package model

// ProfileSource tells which path produced a PersonalityProfile.
type ProfileSource string

const (
	SourceModel ProfileSource = "model"
	SourceRules ProfileSource = "rules"
	SourceNone  ProfileSource = "none"
)

// PersonalityProfile is a per-call classification result.
type PersonalityProfile struct {
	Archetype        string        `json:"archetype"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Characteristics  []string      `json:"characteristics"`
	Color            string        `json:"color"`
	Confidence       float64       `json:"confidence"`
	ClusterID        int           `json:"cluster_id"`
	Source           ProfileSource `json:"source"`
	Recommendations  []string      `json:"recommendations"`
	InsufficientData bool          `json:"insufficient_data"`
}
