// Package extract defines the contract shared by the cloud and local
// extraction backends, the failure taxonomy presented to users, and the
// credential resolution cascade for the cloud backend.
package extract

import (
	"context"

	"github.com/scansheet/ocr-service/internal/models"
)

// State describes a backend's lifecycle. Initializing is only ever entered by
// the local engine while its recognition worker is being constructed.
type State int

const (
	StateUnconfigured State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Options carries backend-specific configuration. The cloud backend reads
// Credential; the local backend reads Language. Configuring is idempotent:
// calling again updates settings without requiring teardown.
type Options struct {
	Credential string
	Language   string
}

// Backend is the capability set both extraction engines implement. Extract
// never returns an error: every failure path is converted into an OCRResult
// with Success false and a classified user-facing message.
type Backend interface {
	Configure(opts Options)
	Ready() bool
	State() State
	Extract(ctx context.Context, img models.ImageData) models.OCRResult
}
