// Package discovery provides the discovery backends services announce
// themselves to once they are ready, and withdraw from on shutdown.
//
// Every backend here implements service.Registerer and service.Deregisterer
// and keeps one Record per service instance, keyed by the instance UUID.
package discovery

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/marmos91/lifecycled/pkg/service"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("discovery backend is closed")

// Record is what a backend stores about a registered service instance.
type Record struct {
	UUID         string    `json:"uuid" yaml:"uuid"`
	Name         string    `json:"name" yaml:"name"`
	Module       string    `json:"module" yaml:"module"`
	Type         string    `json:"type" yaml:"type"`
	Host         string    `json:"host" yaml:"host"`
	PID          int       `json:"pid" yaml:"pid"`
	RegisteredAt time.Time `json:"registered_at" yaml:"registered_at"`
}

// NewRecord describes inst as registered now by this process.
func NewRecord(inst *service.Instance) Record {
	host, _ := os.Hostname()
	return Record{
		UUID:         inst.UUID,
		Name:         inst.Name(),
		Module:       inst.Module.Key(),
		Type:         inst.Definition.TypeName,
		Host:         host,
		PID:          os.Getpid(),
		RegisteredAt: time.Now().UTC(),
	}
}

// Store is a discovery backend that can also list what it holds.
type Store interface {
	service.DiscoveryBackend
	service.Registerer
	service.Deregisterer

	// List returns every registered record, ordered by name.
	List(ctx context.Context) ([]Record, error)

	// Close releases the backend's resources.
	Close() error
}
