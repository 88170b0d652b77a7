package tui

import "errors"

// ErrMissingStore is returned when the retrieval store is not provided.
var ErrMissingStore = errors.New("tui: retrieval store is required")

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("tui: ask service is required")
