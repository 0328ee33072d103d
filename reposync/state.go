package reposync

// State is a stage of repository synchronisation.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateCloningInProgress
	StateSubmodulesChecking
	StateSubmodulesInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateCloningInProgress:
		return "cloning"
	case StateSubmodulesChecking:
		return "submodules-checking"
	case StateSubmodulesInitializing:
		return "submodules-initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Status is a state with its human-readable message. Reason is set only
// when State is StateFailed.
type Status struct {
	State   State
	Message string
	Reason  string
}

// Status messages.
const (
	MsgChecking              = "Checking repository..."
	MsgFound                 = "Repository found. Checking submodules..."
	MsgReady                 = "Repository is ready."
	MsgInitializing          = "Submodules not initialized. Initializing..."
	MsgSubmodulesInitialized = "Submodules initialized successfully."
	MsgCloning               = "No repository found. Cloning..."
	MsgCloned                = "Repository cloned successfully."
)

func failed(prefix, reason string) Status {
	return Status{State: StateFailed, Message: prefix + reason, Reason: reason}
}
