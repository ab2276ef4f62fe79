package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		store := NewTaskStore()
		task := NewTask(NewUserTextMessage("hi"))
		store.Create(task)

		got, err := store.Get(task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, TaskStateSubmitted, got.Status.State)
	})

	t.Run("get unknown", func(t *testing.T) {
		store := NewTaskStore()

		_, err := store.Get("nope")
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("update appends status message and artifacts", func(t *testing.T) {
		store := NewTaskStore()
		task := NewTask(NewUserTextMessage("hi"))
		store.Create(task)

		reply := NewAgentTextMessage("done")
		got, err := store.Update(task.ID, TaskStatus{State: TaskStateCompleted, Message: &reply}, NewArtifact("result", TextPart{Text: "done"}))
		require.NoError(t, err)

		assert.Equal(t, TaskStateCompleted, got.Status.State)
		assert.NotEmpty(t, got.Status.Timestamp)
		assert.Len(t, got.History, 2)
		assert.Len(t, got.Artifacts, 1)
	})

	t.Run("terminal tasks are frozen", func(t *testing.T) {
		store := NewTaskStore()
		task := NewTask(NewUserTextMessage("hi"))
		store.Create(task)

		_, err := store.Update(task.ID, TaskStatus{State: TaskStateFailed})
		require.NoError(t, err)

		_, err = store.Update(task.ID, TaskStatus{State: TaskStateWorking})
		assert.ErrorIs(t, err, ErrTaskTerminal)

		_, err = store.Cancel(task.ID)
		assert.ErrorIs(t, err, ErrTaskTerminal)
	})

	t.Run("cancel", func(t *testing.T) {
		store := NewTaskStore()
		task := NewTask(NewUserTextMessage("hi"))
		store.Create(task)

		got, err := store.Cancel(task.ID)
		require.NoError(t, err)
		assert.Equal(t, TaskStateCanceled, got.Status.State)
	})
}
