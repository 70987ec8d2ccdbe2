// Package session keeps the registry of open documents: spec §9 notes
// "Multiple independent editors coexist trivially" (each document has its
// own full State/EventLog graph, so documents never need a shared lock
// around their content). Manager is the part that single sentence implies
// still needs a shared lock — the map from doc id to *editor.Editor itself,
// since opening/closing documents is the one operation a host application
// plausibly calls from more than one goroutine (e.g. concurrent requests
// for different documents in a server-style host).
//
// Grounded on the teacher's pkg/session/manager.go Manager, narrowed to
// what that single sentence actually needs: the `sessions map[string]Session`
// registry and its mutex survive; `Authenticator`/`ContentStorage` and every
// method built on them are dropped along with pkg/session/interfaces.go and
// session.go — those exist to authenticate and persist *other peers'*
// sessions over a network, which spec.md's Non-goals rule out ("remote
// collaboration") and SPEC_FULL.md never gives a slot to.
package session

import (
	"fmt"
	"sync"

	"github.com/coreseekdev/loom/pkg/buffer"
	"github.com/coreseekdev/loom/pkg/editor"
)

// ErrNotFound is returned when a document id has no open Editor.
var ErrNotFound = fmt.Errorf("session: document not found")

// ErrExists is returned by Open when a document id is already open.
var ErrExists = fmt.Errorf("session: document already open")

// Manager owns the registry of currently open documents, keyed by an
// opaque id the host assigns (a file path is the common choice, but
// Manager never interprets it).
type Manager struct {
	mu   sync.RWMutex
	docs map[string]*editor.Editor
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{docs: make(map[string]*editor.Editor)}
}

// Open registers a new Editor over buf under id, sized width x height.
// Returns ErrExists if id is already open.
func (m *Manager) Open(id string, buf *buffer.Buffer, width, height int) (*editor.Editor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	ed := editor.Open(buf, width, height)
	m.docs[id] = ed
	return ed, nil
}

// Get returns the Editor registered under id.
func (m *Manager) Get(id string) (*editor.Editor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ed, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ed, nil
}

// Close drops id from the registry. It does not save the document; callers
// that want a durable copy should call Editor.Save/SaveLog first.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.docs, id)
	return nil
}

// List returns the ids of every currently open document.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids
}
