package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflowhq/jobflow/internal/api/storage"
	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/messaging"
	"github.com/jobflowhq/jobflow/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	groups     map[string]*domain.JobGroup
	jobs       map[string]*domain.Job
	executions map[string]*domain.JobExecution

	failCreateJob bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:     make(map[string]*domain.JobGroup),
		jobs:       make(map[string]*domain.Job),
		executions: make(map[string]*domain.JobExecution),
	}
}

func (f *fakeStore) CreateJobGroup(_ context.Context, group *domain.JobGroup) error {
	f.groups[group.GroupID] = group
	return nil
}

func (f *fakeStore) GetJobGroup(_ context.Context, groupID string) (*domain.JobGroup, error) {
	group, ok := f.groups[groupID]
	if !ok {
		return nil, domain.ErrJobGroupNotFound
	}
	return group, nil
}

func (f *fakeStore) ListJobGroups(_ context.Context) ([]domain.JobGroup, error) {
	out := make([]domain.JobGroup, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeStore) DeactivateJobGroup(_ context.Context, groupID string) error {
	group, ok := f.groups[groupID]
	if !ok {
		return domain.ErrJobGroupNotFound
	}
	group.IsActive = false
	return nil
}

func (f *fakeStore) CreateJob(_ context.Context, job *domain.Job) error {
	if f.failCreateJob {
		return assert.AnError
	}
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeStore) GetJobWithTasks(_ context.Context, jobID string) (*domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) ListJobs(_ context.Context, _ storage.JobFilter) ([]domain.Job, error) {
	out := make([]domain.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeStore) CreateExecution(_ context.Context, exec *domain.JobExecution) error {
	f.executions[exec.ExecutionID] = exec
	return nil
}

func (f *fakeStore) GetExecution(_ context.Context, executionID string) (*domain.JobExecution, error) {
	exec, ok := f.executions[executionID]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}
	return exec, nil
}

func (f *fakeStore) ListExecutions(_ context.Context, _ storage.ExecutionFilter) ([]domain.JobExecution, error) {
	out := make([]domain.JobExecution, 0, len(f.executions))
	for _, e := range f.executions {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) CancelPendingExecution(_ context.Context, executionID string) (bool, error) {
	exec, ok := f.executions[executionID]
	if !ok {
		return false, nil
	}
	if exec.Status != domain.ExecutionStatusPending {
		return false, nil
	}
	exec.MarkCanceled()
	return true, nil
}

// fakePublisher records published and broadcast message bodies.
type fakePublisher struct {
	published  [][]byte
	broadcasts [][]byte
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	f.published = append(f.published, body)
	return nil
}

func (f *fakePublisher) PublishBroadcast(_ context.Context, body []byte, _ string) error {
	f.broadcasts = append(f.broadcasts, body)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler() (*Handler, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	h := NewHandler(&Dependencies{
		Logger:       testLogger(),
		Store:        store,
		Publisher:    publisher,
		PipelineBase: pipeline.DefaultBase(),
	})
	return h, store, publisher
}

func performJSON(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func testRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/job-groups", h.CreateJobGroup)
	r.GET("/api/v1/job-groups/:group_id", h.GetJobGroup)
	r.DELETE("/api/v1/job-groups/:group_id", h.DeactivateJobGroup)
	r.POST("/api/v1/jobs", h.CreateJob)
	r.GET("/api/v1/jobs/:job_id", h.GetJob)
	r.POST("/api/v1/jobs/:job_id/executions", h.TriggerExecution)
	r.GET("/api/v1/executions/:execution_id", h.GetExecution)
	r.POST("/api/v1/executions/:execution_id/cancel", h.CancelExecution)
	r.POST("/api/v1/pipelines/api-upload", h.RunPipeline)
	return r
}

func seedJob(store *fakeStore, active bool) *domain.Job {
	now := time.Now()
	job := &domain.Job{
		JobID:     uuid.New().String(),
		Name:      "nightly-sync",
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
		Tasks: []domain.JobTask{
			{TaskID: uuid.New().String(), Name: "step-1", TaskType: "GENERAL", ExecutionOrder: 1, IsActive: true},
			{TaskID: uuid.New().String(), Name: "step-2", TaskType: "GENERAL", ExecutionOrder: 2, IsActive: true},
		},
	}
	store.jobs[job.JobID] = job
	return job
}

func TestCreateJobGroup(t *testing.T) {
	h, store, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/job-groups", map[string]string{
		"name":        "etl",
		"description": "nightly batch group",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "etl", resp["name"])
	assert.Equal(t, true, resp["is_active"])
	assert.Len(t, store.groups, 1)
}

func TestCreateJobGroup_MissingName(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/job-groups", map[string]string{
		"description": "no name",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateJobGroup(t *testing.T) {
	h, store, _ := newTestHandler()
	r := testRouter(h)

	group := &domain.JobGroup{GroupID: uuid.New().String(), Name: "etl", IsActive: true}
	store.groups[group.GroupID] = group

	w := performJSON(r, http.MethodDelete, "/api/v1/job-groups/"+group.GroupID, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, group.IsActive)
}

func TestCreateJob_WithTasks(t *testing.T) {
	h, store, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs", map[string]any{
		"name": "nightly-sync",
		"tasks": []map[string]any{
			{"name": "fetch", "task_type": "FETCH_API_DATA", "execution_order": 1},
			{"name": "store", "task_type": "CREATE_FILE", "execution_order": 2},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.jobs, 1)

	for _, job := range store.jobs {
		assert.Len(t, job.Tasks, 2)
		assert.True(t, job.Tasks[0].IsActive)
		assert.Equal(t, job.JobID, job.Tasks[0].JobID)
	}
}

func TestCreateJob_RequiresTasks(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs", map[string]any{
		"name":  "empty",
		"tasks": []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateJob_UnknownGroup(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs", map[string]any{
		"name":     "orphan",
		"group_id": uuid.New().String(),
		"tasks": []map[string]any{
			{"name": "fetch", "task_type": "FETCH_API_DATA"},
		},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerExecution(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)
	job := seedJob(store, true)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs/"+job.JobID+"/executions", nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, store.executions, 1)
	require.Len(t, publisher.published, 1)

	var msg messaging.RunMessage
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, job.JobID, msg.JobID)

	exec := store.executions[msg.ExecutionID]
	require.NotNil(t, exec)
	assert.Equal(t, domain.ExecutionStatusPending, exec.Status)
	assert.Equal(t, 2, exec.TotalTasks)
}

func TestTriggerExecution_InactiveJob(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)
	job := seedJob(store, false)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs/"+job.JobID+"/executions", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, publisher.published)
}

func TestTriggerExecution_JobNotFound(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/jobs/"+uuid.New().String()+"/executions", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelExecution_PendingCanceledInPlace(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)

	exec := domain.NewJobExecution(uuid.New().String(), 3)
	store.executions[exec.ExecutionID] = exec

	w := performJSON(r, http.MethodPost, "/api/v1/executions/"+exec.ExecutionID+"/cancel", nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, domain.ExecutionStatusCanceled, exec.Status)
	assert.Empty(t, publisher.broadcasts, "no broadcast needed for a pending execution")
}

func TestCancelExecution_RunningBroadcasts(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)

	exec := domain.NewJobExecution(uuid.New().String(), 3)
	exec.MarkRunning()
	store.executions[exec.ExecutionID] = exec

	w := performJSON(r, http.MethodPost, "/api/v1/executions/"+exec.ExecutionID+"/cancel", nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, publisher.broadcasts, 1)

	var msg messaging.CancelMessage
	require.NoError(t, json.Unmarshal(publisher.broadcasts[0], &msg))
	assert.Equal(t, exec.ExecutionID, msg.ExecutionID)
	assert.Equal(t, domain.ExecutionStatusRunning, exec.Status, "worker owns the terminal transition")
}

func TestCancelExecution_TerminalConflict(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)

	exec := domain.NewJobExecution(uuid.New().String(), 1)
	exec.MarkRunning()
	exec.MarkCompleted()
	store.executions[exec.ExecutionID] = exec

	w := performJSON(r, http.MethodPost, "/api/v1/executions/"+exec.ExecutionID+"/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, publisher.broadcasts)
}

func TestRunPipeline(t *testing.T) {
	h, store, publisher := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodPost, "/api/v1/pipelines/api-upload", map[string]any{
		"name":       "weather-etl",
		"url":        "http://api.example.com/weather",
		"upload_url": "http://drop.example.com/upload",
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, store.jobs, 1)
	require.Len(t, store.executions, 1)
	require.Len(t, publisher.published, 1)

	for _, job := range store.jobs {
		assert.Len(t, job.Tasks, 4)
	}
	for _, exec := range store.executions {
		assert.Equal(t, 4, exec.TotalTasks)
	}
}

func TestRunPipeline_InvalidRequest(t *testing.T) {
	h, _, publisher := newTestHandler()
	r := testRouter(h)

	// Missing upload target
	w := performJSON(r, http.MethodPost, "/api/v1/pipelines/api-upload", map[string]any{
		"url": "http://api.example.com/weather",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, publisher.published)
}

func TestGetExecution_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodGet, "/api/v1/executions/"+uuid.New().String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetExecution_InvalidID(t *testing.T) {
	h, _, _ := newTestHandler()
	r := testRouter(h)

	w := performJSON(r, http.MethodGet, "/api/v1/executions/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecutionDTO_StartedAtOnlyOnceRunning(t *testing.T) {
	exec := domain.NewJobExecution(uuid.New().String(), 2)

	out := toExecutionDTO(exec)
	assert.Empty(t, out.StartedAt, "a pending execution has not started")

	exec.MarkRunning()
	out = toExecutionDTO(exec)
	require.NotEmpty(t, out.StartedAt)

	parsed, err := time.Parse(time.RFC3339, out.StartedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, *exec.StartedAt, parsed, time.Second)
}
