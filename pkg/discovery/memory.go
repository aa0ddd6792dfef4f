package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
)

// MemoryStore keeps records in process memory. It is the default backend
// and what tests use to observe registration.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) RegisterService(ctx context.Context, inst *service.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[inst.UUID] = NewRecord(inst)
	logger.DebugCtx(ctx, "registered service", logger.KeyRegistry, m.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (m *MemoryStore) DeregisterService(ctx context.Context, inst *service.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.records, inst.UUID)
	logger.DebugCtx(ctx, "deregistered service", logger.KeyRegistry, m.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].UUID < records[j].UUID
	})
}
