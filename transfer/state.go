package transfer

// State is the phase of one extraction transfer.
type State uint32

const (
	// Streaming indicates that hex lines are still arriving.
	Streaming State = iota
	// AwaitingTrailer indicates that the data went quiet and the Pause
	// response is being drained for the status trailer.
	AwaitingTrailer
	// Finished is terminal; no further reads are issued.
	Finished
)

// IsStreaming returns if the current state is streaming.
func (s State) IsStreaming() bool { return s == Streaming }

// IsAwaitingTrailer returns if the current state is awaiting the trailer.
func (s State) IsAwaitingTrailer() bool { return s == AwaitingTrailer }

// IsFinished returns if the current state is finished.
func (s State) IsFinished() bool { return s == Finished }

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case AwaitingTrailer:
		return "awaiting-trailer"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Action is what the orchestrator must do after a monitor transition.
type Action int

const (
	// ActionNone requires nothing.
	ActionNone Action = iota
	// ActionPause requires sending the Pause command in echo mode and
	// feeding its response to Monitor.Observe.
	ActionPause
	// ActionFinish ends the run.
	ActionFinish
)

// String returns string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionPause:
		return "pause"
	case ActionFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// StateChangeHandler is invoked synchronously on every state transition.
type StateChangeHandler func(prev State, next State)
