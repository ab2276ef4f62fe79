package a2a

import (
	"fmt"
	"sync"
	"time"
)

// TaskStore keeps the tasks an agent server has accepted. The pipeline runs
// short-lived request/response exchanges, so an in-memory store is sufficient;
// tasks are retained until the process exits.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

// Create registers a new task. The stored copy is independent of the caller's.
func (s *TaskStore) Create(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *task
	s.tasks[task.ID] = &clone
}

// Get returns a copy of the task with the given ID, or ErrTaskNotFound.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	clone := *task
	return &clone, nil
}

// Update transitions a task to a new status, optionally appending artifacts
// and the status message to history. Terminal tasks cannot be updated.
func (s *TaskStore) Update(id string, status TaskStatus, artifacts ...Artifact) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status.State.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTaskTerminal, id, task.Status.State)
	}

	if status.Timestamp == "" {
		status.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	task.Status = status
	if status.Message != nil {
		task.History = append(task.History, *status.Message)
	}
	task.Artifacts = append(task.Artifacts, artifacts...)

	clone := *task
	return &clone, nil
}

// Cancel moves a non-terminal task to the canceled state.
func (s *TaskStore) Cancel(id string) (*Task, error) {
	return s.Update(id, TaskStatus{State: TaskStateCanceled})
}
