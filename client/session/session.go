// Package session tracks the widget's browsing-session continuity: an
// opaque session ID plus the set of popups already shown, so a shopper
// never sees the same popup twice in one session.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

type Store interface {
	// ID returns the opaque session identifier, generated once.
	ID() string
	// MarkShown records that a popup has been displayed this session.
	MarkShown(popupID string)
	// Shown reports whether a popup was already displayed this session.
	Shown(popupID string) bool
}

// Memory is the in-process Store. It plays the role browser
// sessionStorage plays for the JS widget: state lives exactly as long
// as the process.
type Memory struct {
	id    string
	mu    sync.Mutex
	shown map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		id:    newSessionID(),
		shown: make(map[string]struct{}),
	}
}

func (m *Memory) ID() string { return m.id }

func (m *Memory) MarkShown(popupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown[popupID] = struct{}{}
}

func (m *Memory) Shown(popupID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.shown[popupID]
	return ok
}

func newSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Practically unreachable; keep the widget alive regardless.
		return "fallback_session_" + time.Now().Format("20060102150405")
	}
	return base64.URLEncoding.EncodeToString(b)
}
