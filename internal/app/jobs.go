package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/analysis"
	"github.com/pscheid92/startupai/internal/domain"
	"github.com/pscheid92/startupai/internal/platform/correlation"
)

type job struct {
	id            string
	userID        uuid.UUID
	inputs        analysis.Inputs
	correlationID string
}

// AnalysisJobs runs analyses on a fixed pool of workers fed by a bounded
// queue. Run state lives in the analysis repository so any instance can
// answer status queries.
type AnalysisJobs struct {
	repo     domain.AnalysisRepository
	engine   *analysis.Engine
	recorder Recorder
	clock    clockwork.Clock

	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAnalysisJobs starts workers immediately. recorder may be nil.
func NewAnalysisJobs(repo domain.AnalysisRepository, engine *analysis.Engine, workers, queueSize int, recorder Recorder, clock clockwork.Clock) *AnalysisJobs {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	j := &AnalysisJobs{
		repo:     repo,
		engine:   engine,
		recorder: recorder,
		clock:    clock,
		queue:    make(chan job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for range workers {
		j.wg.Go(j.work)
	}
	slog.Info("Analysis workers started", "workers", workers, "queue_size", queueSize)
	return j
}

// Submit persists a queued run and hands it to the pool. A full queue marks
// the run failed and returns domain.ErrQueueFull.
func (j *AnalysisJobs) Submit(ctx context.Context, userID uuid.UUID, in analysis.Inputs) (*domain.AnalysisRun, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	run := &domain.AnalysisRun{
		ID:        analysis.NewAnalysisID(),
		UserID:    userID,
		ProjectID: in.ProjectID,
		Status:    domain.AnalysisQueued,
		Inputs:    in.Map(),
		CreatedAt: j.clock.Now().UTC(),
	}
	if err := j.repo.Create(ctx, run); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.failRun(ctx, run.ID, "service shutting down")
		return nil, fmt.Errorf("%w: shutting down", domain.ErrQueueFull)
	}

	cid, _ := correlation.ID(ctx)
	select {
	case j.queue <- job{id: run.ID, userID: userID, inputs: in, correlationID: cid}:
		j.recorder.AnalysisQueueDepth(len(j.queue))
		return run, nil
	default:
		j.failRun(ctx, run.ID, domain.ErrQueueFull.Error())
		return nil, domain.ErrQueueFull
	}
}

// Get returns a run to its owner. Other callers get domain.ErrNotOwner.
func (j *AnalysisJobs) Get(ctx context.Context, userID uuid.UUID, analysisID string) (*domain.AnalysisRun, error) {
	run, err := j.repo.Get(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return run, nil
}

// Shutdown stops accepting jobs and waits for queued and running jobs. When
// ctx ends first, in-flight runs are cancelled and ctx.Err() is returned.
func (j *AnalysisJobs) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.cancel()
		return nil
	case <-ctx.Done():
		j.cancel()
		<-done
		return ctx.Err()
	}
}

func (j *AnalysisJobs) work() {
	for jb := range j.queue {
		j.recorder.AnalysisQueueDepth(len(j.queue))
		j.run(jb)
	}
}

func (j *AnalysisJobs) run(jb job) {
	ctx := j.ctx
	if jb.correlationID != "" {
		ctx = correlation.WithID(ctx, jb.correlationID)
	}

	if err := j.repo.MarkRunning(ctx, jb.id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark analysis running", "analysis_id", jb.id, "error", err)
	}

	start := j.clock.Now()
	res := j.engine.RunWithID(ctx, jb.id, jb.inputs, jb.userID.String())
	j.recorder.AnalysisCompleted(res.Metadata.Mode, triggerBackground, j.clock.Since(start))

	if ctx.Err() != nil {
		j.failRun(context.WithoutCancel(ctx), jb.id, "analysis cancelled during shutdown")
		return
	}

	result, err := toMap(res.Payload)
	if err != nil {
		j.failRun(ctx, jb.id, err.Error())
		return
	}
	metadata, err := toMap(res.Metadata)
	if err != nil {
		j.failRun(ctx, jb.id, err.Error())
		return
	}

	if err := j.repo.Complete(ctx, jb.id, res.Metadata.Mode, result, metadata); err != nil {
		slog.ErrorContext(ctx, "Failed to store analysis result", "analysis_id", jb.id, "error", err)
		return
	}
	slog.InfoContext(ctx, "Background analysis completed", "analysis_id", jb.id, "mode", res.Metadata.Mode)
}

func (j *AnalysisJobs) failRun(ctx context.Context, id, message string) {
	if err := j.repo.Fail(ctx, id, message); err != nil {
		slog.ErrorContext(ctx, "Failed to mark analysis failed", "analysis_id", id, "error", err)
	}
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis output: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode analysis output: %w", err)
	}
	return m, nil
}
