package session

import "time"

// State is the lifecycle phase of a session.
type State int

const (
	// Idle means a form is loaded (or the session was reset) and nothing has
	// been edited yet.
	Idle State = iota
	Editing
	Submitting
	// Submitted holds for the success display window after a submission
	// resolves.
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a session. Callers own the maps.
type Snapshot struct {
	FormID        string
	State         State
	Values        map[string]any
	Errors        map[string][]string
	IsValid       bool
	IsSubmitting  bool
	SubmitSuccess bool
	// SubmittedAt is zero until a submission resolves successfully.
	SubmittedAt time.Time
}

// ErrorsFor returns the messages attached to a field.
func (s Snapshot) ErrorsFor(fieldID string) []string {
	return s.Errors[fieldID]
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func cloneErrors(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
