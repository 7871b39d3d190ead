package memory

import (
	"budgie/internal/types"
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskStore implements ports.TaskStore with a mutex guarded map.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]types.LastOperation
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]types.LastOperation)}
}

func (s *TaskStore) GetTask(_ context.Context, trackingID uuid.UUID) (types.LastOperation, bool) {
	s.mu.RLock()
	op, ok := s.tasks[trackingID]
	s.mu.RUnlock()
	return op, ok
}

func (s *TaskStore) PutTask(_ context.Context, trackingID uuid.UUID, op types.LastOperation) {
	s.mu.Lock()
	s.tasks[trackingID] = op
	s.mu.Unlock()
}

func (s *TaskStore) ClearAll(_ context.Context) {
	s.mu.Lock()
	clear(s.tasks)
	s.mu.Unlock()
}
