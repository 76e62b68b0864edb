package pipeline

// State is the lifecycle stage of a feature run.
type State string

const (
	StateInitializing     State = "initializing"
	StateSchemaReady      State = "schema_ready"
	StateFeaturesComputed State = "features_computed"
	StateWritingBatches   State = "writing_batches"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// transitions lists the forward edges. Failed is reachable from every
// non-terminal state and is not listed.
var transitions = map[State][]State{
	StateInitializing:     {StateSchemaReady},
	StateSchemaReady:      {StateFeaturesComputed},
	StateFeaturesComputed: {StateWritingBatches, StateCompleted},
	StateWritingBatches:   {StateCompleted},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether a run may move from one state to another.
// Dry runs go straight from FeaturesComputed to Completed.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
