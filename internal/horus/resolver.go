package horus

import (
	"errors"
	"fmt"
	"sync"
)

// Resolver modes besides the provider-specific ones.
const (
	ModeUnresolved  = "unresolved"
	ModeUnavailable = "unavailable"
)

// Candidate is one way of reaching the project tree. Open builds the
// provider; the resolver then probes it.
type Candidate struct {
	Mode string
	Open func() (Provider, error)
}

// Resolver picks a provider the first time one is needed and keeps it for
// the rest of the process. Candidates are tried in order. When none of them
// opens and probes cleanly the resolver settles in ModeUnavailable and every
// later call fails fast with ErrUnavailable.
type Resolver struct {
	candidates []Candidate
	logger     Logger

	once     sync.Once
	mu       sync.RWMutex
	mode     string
	provider Provider
	err      error
}

func NewResolver(candidates []Candidate, logger Logger) *Resolver {
	return &Resolver{
		candidates: candidates,
		logger:     logger,
		mode:       ModeUnresolved,
	}
}

// Provider returns the committed provider, resolving on first use.
func (r *Resolver) Provider() (Provider, error) {
	r.once.Do(r.resolve)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.provider, nil
}

// Mode reports which candidate was committed, ModeUnavailable, or
// ModeUnresolved if nothing has asked for a provider yet.
func (r *Resolver) Mode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

func (r *Resolver) resolve() {
	var attempts []error
	for _, c := range r.candidates {
		p, err := r.try(c)
		if err != nil {
			r.logger.Warn("provider unavailable", "mode", c.Mode, "error", err)
			attempts = append(attempts, fmt.Errorf("%s: %w", c.Mode, err))
			continue
		}

		r.logger.Info("provider selected", "mode", c.Mode)
		r.mu.Lock()
		r.mode = c.Mode
		r.provider = p
		r.mu.Unlock()
		return
	}

	r.logger.Error("no provider available", "attempts", len(attempts))
	r.mu.Lock()
	r.mode = ModeUnavailable
	r.err = errors.Join(append([]error{ErrUnavailable}, attempts...)...)
	r.mu.Unlock()
}

func (r *Resolver) try(c Candidate) (Provider, error) {
	p, err := c.Open()
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}
	if err := p.Probe(); err != nil {
		p.Close()
		return nil, fmt.Errorf("probing: %w", err)
	}
	return p, nil
}

// Close releases the committed provider, if any.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.provider == nil {
		return nil
	}
	err := r.provider.Close()
	r.provider = nil
	r.err = fmt.Errorf("%w: resolver closed", ErrUnavailable)
	return err
}
