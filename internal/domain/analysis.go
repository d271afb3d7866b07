package domain

// Analysis is a derived scoring snapshot over a task collection.
// It is recomputed on demand and never persisted.
type Analysis struct {
	ProductivityScore   int      `json:"productivityScore"`
	TimeManagementScore int      `json:"timeManagementScore"`
	PrioritizationScore int      `json:"prioritizationScore"`
	Insights            []string `json:"insights"`
	SuggestedTags       []string `json:"suggestedTags"`
}
