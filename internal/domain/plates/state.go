package plates

import "time"

// State is the render state of a list view.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
	StateEmpty   State = "empty"
)

func (s State) String() string {
	return string(s)
}

// Snapshot is a consistent, read-only picture of a list view taken at one
// instant. Renderers only ever see snapshots.
type Snapshot struct {
	View        string    `json:"view"`
	State       State     `json:"state"`
	Window      Window    `json:"window"`
	Error       string    `json:"error,omitempty"`
	HasData     bool      `json:"has_data"`
	Refreshing  bool      `json:"refreshing"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}
