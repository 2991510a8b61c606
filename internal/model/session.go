package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session is the transient state of one activation, from opening the
// editor to handing the script back to the page. It is never persisted.
// Session is a value: the With* methods return modified copies.
type Session struct {
	ID      string
	PageURL string
	Title   string
	Host    string // empty for a hostless session
	Script  string
}

// NewSession creates a Session for the given page, deriving its host.
// A missing or host-less URL yields a hostless session.
func NewSession(pageURL, title string) Session {
	host, _ := DeriveHost(pageURL)
	return Session{
		ID:      newSessionID(),
		PageURL: pageURL,
		Title:   title,
		Host:    host,
	}
}

// Hostless reports whether scripts cannot be listed or saved.
func (s Session) Hostless() bool {
	return s.Host == ""
}

// WithScript returns a copy of s holding the given editor text.
func (s Session) WithScript(src string) Session {
	s.Script = src
	return s
}

// DisplayTitle returns the page title, falling back to the host.
func (s Session) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Host != "" {
		return s.Host
	}
	return "Untitled page"
}

func newSessionID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
