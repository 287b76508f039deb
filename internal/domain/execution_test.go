package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobExecution_Lifecycle(t *testing.T) {
	exec := NewJobExecution("job-1", 4)

	assert.Equal(t, ExecutionStatusPending, exec.Status)
	assert.False(t, exec.IsTerminal())
	assert.NotEmpty(t, exec.ExecutionID)
	assert.Nil(t, exec.StartedAt, "not started yet")

	exec.MarkRunning()
	assert.Equal(t, ExecutionStatusRunning, exec.Status)
	require.NotNil(t, exec.StartedAt)

	exec.MarkCompleted()
	assert.Equal(t, ExecutionStatusCompleted, exec.Status)
	assert.True(t, exec.IsTerminal())
	require.NotNil(t, exec.CompletedAt)
}

func TestJobExecution_Progress(t *testing.T) {
	tests := []struct {
		name  string
		index int
		total int
		want  int
	}{
		{name: "not started", index: 0, total: 4, want: 0},
		{name: "one of four", index: 1, total: 4, want: 25},
		{name: "floors fractions", index: 1, total: 3, want: 33},
		{name: "two of three", index: 2, total: 3, want: 66},
		{name: "all done", index: 4, total: 4, want: 100},
		{name: "no tasks is trivially complete", index: 0, total: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &JobExecution{CurrentTaskIndex: tt.index, TotalTasks: tt.total}
			assert.Equal(t, tt.want, exec.Progress())
		})
	}
}

func TestJobExecution_TerminalTransitionHappensOnce(t *testing.T) {
	exec := NewJobExecution("job-1", 2)
	exec.MarkRunning()
	exec.MarkFailed("task write failed: disk full")

	require.NotNil(t, exec.CompletedAt)
	firstCompletedAt := *exec.CompletedAt
	firstDuration := exec.DurationMs

	time.Sleep(time.Millisecond)
	exec.MarkCompleted()
	exec.MarkCanceled()
	exec.AdvanceTask()

	assert.Equal(t, ExecutionStatusFailed, exec.Status, "no transitions out of a terminal state")
	assert.Equal(t, firstCompletedAt, *exec.CompletedAt)
	assert.Equal(t, firstDuration, exec.DurationMs)
	assert.Equal(t, "task write failed: disk full", exec.ErrorMessage)
}

func TestJobExecution_AdvanceTask(t *testing.T) {
	exec := NewJobExecution("job-1", 4)
	exec.MarkRunning()

	exec.AdvanceTask()
	assert.Equal(t, 1, exec.CurrentTaskIndex)
	assert.Equal(t, 25, exec.ProgressPercentage)

	exec.AdvanceTask()
	assert.Equal(t, 2, exec.CurrentTaskIndex)
	assert.Equal(t, 50, exec.ProgressPercentage)
}

func TestJob_ActiveTasks(t *testing.T) {
	job := &Job{
		Tasks: []JobTask{
			{Name: "late", ExecutionOrder: 9, IsActive: true},
			{Name: "first-tie", ExecutionOrder: 3, IsActive: true},
			{Name: "inactive", ExecutionOrder: 1, IsActive: false},
			{Name: "second-tie", ExecutionOrder: 3, IsActive: true},
		},
	}

	tasks := job.ActiveTasks()

	require.Len(t, tasks, 3)
	assert.Equal(t, "first-tie", tasks[0].Name, "ties keep insertion order")
	assert.Equal(t, "second-tie", tasks[1].Name)
	assert.Equal(t, "late", tasks[2].Name)
}

func TestJobTask_Defaults(t *testing.T) {
	task := &JobTask{}

	assert.Equal(t, DefaultMaxRetries, task.EffectiveMaxRetries())
	assert.Equal(t, DefaultTimeoutSeconds*time.Second, task.EffectiveTimeout())

	task.MaxRetries = -1
	assert.Equal(t, 0, task.EffectiveMaxRetries(), "negative means no retries")

	task.MaxRetries = 5
	task.TimeoutSeconds = 30
	assert.Equal(t, 5, task.EffectiveMaxRetries())
	assert.Equal(t, 30*time.Second, task.EffectiveTimeout())
}
