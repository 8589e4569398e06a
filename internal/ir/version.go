package ir

// Version constants stamped on rendered plans.
const (
	// PlanVersion is the plan rendering schema version.
	PlanVersion = "1"

	// PlannerVersion is the nestq planner version.
	PlannerVersion = "0.1.0"
)
