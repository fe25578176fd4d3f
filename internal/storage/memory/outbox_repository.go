package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
)

type outboxState string

const (
	outboxStatePending outboxState = "pending"
	outboxStateSent    outboxState = "sent"
	outboxStateFailed  outboxState = "failed"
)

type outboxRecord struct {
	msg   domain.OutboxMessage
	state outboxState
}

// outboxRepositoryInMemory — in-memory реализация transactional outbox.
type outboxRepositoryInMemory struct {
	mu      sync.Mutex
	records map[string]*outboxRecord
}

// NewOutboxRepository возвращает in-memory outbox для локальной разработки и тестов.
func NewOutboxRepository() domain.OutboxRepository {
	return &outboxRepositoryInMemory{
		records: make(map[string]*outboxRecord),
	}
}

func (r *outboxRepositoryInMemory) Enqueue(_ context.Context, msg domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[msg.ID] = &outboxRecord{msg: msg, state: outboxStatePending}
	return nil
}

func (r *outboxRepositoryInMemory) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]domain.OutboxMessage, 0, len(r.records))
	for _, rec := range r.records {
		if rec.state == outboxStatePending {
			pending = append(pending, rec.msg)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *outboxRepositoryInMemory) MarkSent(_ context.Context, id string) error {
	return r.mark(id, outboxStateSent)
}

func (r *outboxRepositoryInMemory) MarkFailed(_ context.Context, id string) error {
	return r.mark(id, outboxStateFailed)
}

func (r *outboxRepositoryInMemory) mark(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("outbox record %s not found", id)
	}
	rec.state = state
	return nil
}

func (r *outboxRepositoryInMemory) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := domain.OutboxStats{}
	for _, rec := range r.records {
		if rec.state != outboxStatePending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || rec.msg.CreatedAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = rec.msg.CreatedAt
		}
	}
	return stats, nil
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
