// Package tui provides an interactive terminal user interface for ragstore.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Store lists and deletes documents and reports stats.
	Store driving.RetrievalStore

	// Ask answers questions.
	Ask driving.AskService

	// Defaults are the query options used for every question.
	Defaults domain.QueryOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Store == nil {
		return ErrMissingStore
	}
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}

// queryOptions returns Defaults with unset fields filled in.
func (p *Ports) queryOptions() domain.QueryOptions {
	opts := p.Defaults
	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	return opts
}
