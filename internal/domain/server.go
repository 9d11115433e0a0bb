package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Server is a monitored host reporting metrics.
//
// Hostname is unique across servers; uniqueness is checked by the
// status service against the repository, not here.
type Server struct {
	ID        string
	Hostname  string
	CreatedAt time.Time
}

// NewServer builds a server with a fresh id. Call Validate before saving.
func NewServer(hostname string, now time.Time) *Server {
	return &Server{
		ID:        uuid.NewString(),
		Hostname:  strings.TrimSpace(hostname),
		CreatedAt: now.UTC(),
	}
}

// Validate checks the fields that do not require the store.
func (s *Server) Validate() error {
	verr := NewValidationError()
	if s.Hostname == "" {
		verr.Add("hostname", "The hostname is required.")
	} else if strings.ContainsAny(s.Hostname, " \t/") {
		verr.Add("hostname", "The hostname must not contain spaces or slashes.")
	}
	return verr.OrNil()
}

// Domain is a named host attached to pages.
type Domain struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewDomain builds a domain with a fresh id. Call Validate before saving.
func NewDomain(name string, now time.Time) *Domain {
	return &Domain{
		ID:        uuid.NewString(),
		Name:      strings.ToLower(strings.TrimSpace(name)),
		CreatedAt: now.UTC(),
	}
}

func (d *Domain) Validate() error {
	verr := NewValidationError()
	if d.Name == "" {
		verr.Add("name", "The name is required.")
	}
	return verr.OrNil()
}
