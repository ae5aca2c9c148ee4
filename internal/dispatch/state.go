package dispatch

import "cdcrouter/pkg/models"

type State string

const (
	StateResolving    State = "RESOLVING"
	StateDispatching  State = "DISPATCHING"
	StateCompleted    State = "COMPLETED"
	StateQuarantining State = "QUARANTINING"
	StateDone         State = "DONE"
)

// Path is the terminal route a batch took.
type Path string

const (
	PathCompleted   Path = "completed"
	PathUnrouted    Path = "unrouted"
	PathQuarantined Path = "quarantined"
	PathFailed      Path = "failed"
)

// Outcome describes one Dispatch call. States lists every state visited in
// order, ending with StateDone.
type Outcome struct {
	States     []State
	Path       Path
	Source     models.LogicalSource
	Handled    int
	Triggers   int
	Duplicates int
	MessageID  string
}

func (o *Outcome) enter(s State) {
	o.States = append(o.States, s)
}

// Visited reports whether the batch passed through s.
func (o Outcome) Visited(s State) bool {
	for _, v := range o.States {
		if v == s {
			return true
		}
	}
	return false
}
