// Package persistence owns the storage connection: it tracks connectivity,
// gates todo operations on it and provides the Store backends.
package persistence

import (
	"sync/atomic"

	"github.com/example/todo-service/domain/todo"
)

// State is the connectivity of the storage backend. Values follow the
// document driver's ready-state numbering.
type State int32

const (
	Disconnected  State = 0
	Connected     State = 1
	Connecting    State = 2
	Disconnecting State = 3
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Connecting:
		return "connecting"
	case Disconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// ConnectionState exposes the current connectivity of a storage backend.
type ConnectionState interface {
	State() State
}

// Tracker is a ConnectionState driven by the storage driver's lifecycle.
// Driver events go through Observe; once BeginClose has been called they
// are ignored so a late heartbeat cannot resurrect a closing connection.
type Tracker struct {
	state   atomic.Int32
	closing atomic.Bool
}

// NewTracker returns a tracker in the Disconnected state.
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) State() State {
	return State(t.state.Load())
}

// BeginOpen marks the start of a connection attempt.
func (t *Tracker) BeginOpen() {
	t.closing.Store(false)
	t.state.Store(int32(Connecting))
}

// Observe records a state reported by the driver.
func (t *Tracker) Observe(s State) {
	if t.closing.Load() {
		return
	}
	t.state.Store(int32(s))
}

// BeginClose marks the start of a shutdown.
func (t *Tracker) BeginClose() {
	t.closing.Store(true)
	t.state.Store(int32(Disconnecting))
}

// Closed marks the connection as fully released.
func (t *Tracker) Closed() {
	t.state.Store(int32(Disconnected))
}

// Gate rejects work while storage is not connected. It only observes the
// state; it never retries or reconnects.
type Gate struct {
	conn ConnectionState
}

// NewGate wraps a connection state.
func NewGate(conn ConnectionState) *Gate {
	if conn == nil {
		panic("persistence gate requires a non-nil ConnectionState")
	}
	return &Gate{conn: conn}
}

// State returns the current connection state.
func (g *Gate) State() State {
	return g.conn.State()
}

// IsAvailable is true only in the Connected state.
func (g *Gate) IsAvailable() bool {
	return g.conn.State() == Connected
}

// Check returns an Unavailable error naming the state when storage is not
// connected, nil otherwise.
func (g *Gate) Check() error {
	if s := g.conn.State(); s != Connected {
		return todo.Unavailable(s.String())
	}
	return nil
}
