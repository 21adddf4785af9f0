package health

import (
	"context"
	"time"
)

// Pinger is a backend that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named backend ping.
type Check struct {
	Name    string
	Backend string
	Pinger  Pinger
}

// BackendStatus is the outcome of one check.
type BackendStatus struct {
	Backend string `json:"backend"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Status is the health payload.
type Status struct {
	OK       bool                     `json:"ok"`
	Backends map[string]BackendStatus `json:"backends"`
}

// Service encapsulates health-related checks.
type Service struct {
	checks  []Check
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService(checks ...Check) *Service {
	return &Service{checks: checks, timeout: 2 * time.Second}
}

// Status pings every backend. Checks without a Pinger only report their name.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true, Backends: make(map[string]BackendStatus, len(s.checks))}
	for _, c := range s.checks {
		st := BackendStatus{Backend: c.Backend, OK: true}
		if c.Pinger != nil {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			if err := c.Pinger.Ping(pctx); err != nil {
				st.OK = false
				st.Error = err.Error()
				out.OK = false
			}
			cancel()
		}
		out.Backends[c.Name] = st
	}
	return out
}
