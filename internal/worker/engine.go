// Package worker runs slow library operations on a single background
// goroutine: metadata lookups, bulk cover sync, cover downloads and lyrics
// fetches. Jobs run strictly in enqueue order and report their outcome on a
// per-job result channel.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/librarian/internal/config"
	"github.com/listenupapp/librarian/internal/domain"
	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/id"
	"github.com/listenupapp/librarian/internal/library"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/media/covers"
	"github.com/listenupapp/librarian/internal/metrics"
)

// StatusIdle is reported while no job runs.
const StatusIdle = "Idle"

// Library is the slice of the library service the worker uses. Every call
// takes the library lock for its own duration only.
type Library interface {
	Count(ctx context.Context, kind domain.Kind) (int, error)
	Hydrate(ctx context.Context, kind domain.Kind, index int) (domain.Record, error)
	UpdateCover(ctx context.Context, kind domain.Kind, itemID string, u library.CoverUpdate, deferIndex bool) error
	RewriteIndex(ctx context.Context, kind domain.Kind) error
	CoverFileName(kind domain.Kind, itemID string) string
}

// TrackLister loads and stores track-list sidecars.
type TrackLister interface {
	LoadTrackList(ctx context.Context, releaseID string) (*domain.TrackList, error)
	SaveTrackList(ctx context.Context, tl *domain.TrackList) error
}

// TrackSource fetches the track list of a looked-up release.
type TrackSource interface {
	FetchTrackList(ctx context.Context, releaseID string) (*domain.TrackList, error)
}

// CoverChecker reports whether a cover file is on the card. It takes the
// bus lock only.
type CoverChecker interface {
	CoverExists(ctx context.Context, name string) (bool, error)
}

// Lookup resolves a barcode or ISBN into a record.
type Lookup interface {
	LookupByCode(ctx context.Context, kind domain.Kind, code string) (domain.Record, error)
}

// CoverResolver finds a cover URL for an item.
type CoverResolver interface {
	ResolveCoverURL(ctx context.Context, kind domain.Kind, creator, title string) (string, error)
}

// Downloader stores the image at url under dest.
type Downloader interface {
	Download(ctx context.Context, url, dest string) (*covers.Result, error)
}

// LyricsFetcher fetches lyrics for one track of a release.
type LyricsFetcher interface {
	FetchLyrics(ctx context.Context, releaseID string, trackIndex int, force bool) (domain.LyricsResult, error)
}

// Deps are the collaborators of an Engine. A nil collaborator makes the
// jobs needing it fail.
type Deps struct {
	Library    Library
	Tracks     TrackLister
	Covers     CoverChecker
	Lookup     Lookup
	TrackInfo  TrackSource
	Resolver   CoverResolver
	Downloader Downloader
	Lyrics     LyricsFetcher
}

type pending struct {
	job  domain.Job
	done chan domain.JobResult
}

// Engine is the background job engine.
type Engine struct {
	deps   Deps
	cfg    config.WorkerConfig
	qmu    *lock.Mutex
	logger *slog.Logger
	now    func() time.Time

	queue []pending // guarded by qmu

	busy atomic.Bool
	stop atomic.Bool

	stateMu  sync.RWMutex
	status   string
	progress float64

	// Worker management
	ctx       context.Context //nolint:containedctx // Context needed for worker lifecycle management
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	jobNotify chan struct{}
	started   atomic.Bool
}

// NewEngine creates an engine. queueLock guards the queue and must not be
// shared with the library or bus locks.
func NewEngine(deps Deps, queueLock *lock.Mutex, cfg config.WorkerConfig, logger *slog.Logger) *Engine {
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = 100 * time.Millisecond
	}
	if cfg.LyricsScanTrackCap <= 0 {
		cfg.LyricsScanTrackCap = 5
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		deps:      deps,
		cfg:       cfg,
		qmu:       queueLock,
		logger:    logger,
		now:       time.Now,
		status:    StatusIdle,
		ctx:       ctx,
		cancel:    cancel,
		jobNotify: make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine. Calling it twice is a no-op.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	e.logger.Info("starting background worker",
		slog.Duration("idle_poll", e.cfg.IdlePoll),
		slog.Int("max_retries", e.cfg.MaxRetries),
	)
	e.wg.Add(1)
	go e.worker()
}

// Stop cancels the running job, waits for the worker to exit and fails
// every job still queued.
func (e *Engine) Stop() {
	e.logger.Info("stopping background worker")
	e.stop.Store(true)
	e.cancel()
	e.wg.Wait()

	var left []pending
	if err := e.qmu.LockWithin(context.Background(), time.Second); err == nil {
		left = e.queue
		e.queue = nil
		e.qmu.Unlock()
	}
	for _, p := range left {
		p.done <- domain.JobResult{JobID: p.job.ID, Kind: p.job.Kind, Message: "Engine Stopped", Finished: e.now()}
	}
	metrics.QueueDepth.Set(0)
	e.logger.Info("background worker stopped", slog.Int("dropped", len(left)))
}

// Enqueue appends job to the queue and returns the channel its result is
// delivered on. The channel is buffered; the worker never blocks on it.
// A returned channel does not mean the job has started.
func (e *Engine) Enqueue(ctx context.Context, job domain.Job) (<-chan domain.JobResult, error) {
	if job.ID == "" {
		job.ID = id.Job()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = e.now()
	}

	if err := e.qmu.Lock(ctx); err != nil {
		return nil, err
	}
	if e.ctx.Err() != nil {
		e.qmu.Unlock()
		return nil, errors.Internal("background worker stopped")
	}
	done := make(chan domain.JobResult, 1)
	e.queue = append(e.queue, pending{job: job, done: done})
	depth := len(e.queue)
	e.qmu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	e.logger.Debug("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("kind", job.Kind.String()),
		slog.Int("depth", depth),
	)
	e.notify()
	return done, nil
}

func (e *Engine) notify() {
	select {
	case e.jobNotify <- struct{}{}:
	default:
		// Already notified
	}
}

// IsBusy reports whether a job is executing.
func (e *Engine) IsBusy() bool {
	return e.busy.Load()
}

// QueueDepth returns the number of jobs waiting to run. It returns -1 when
// the queue lock could not be taken.
func (e *Engine) QueueDepth() int {
	if !e.qmu.TryLock() {
		return -1
	}
	defer e.qmu.Unlock()
	return len(e.queue)
}

// Status returns the human-readable state of the worker.
func (e *Engine) Status() string {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.status
}

// Progress returns the completed fraction of the running job in [0, 1].
func (e *Engine) Progress() float64 {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.progress
}

// RequestStop asks the running bulk sync or lyrics job to stop after its
// current unit of work. Queued jobs are not affected.
func (e *Engine) RequestStop() {
	e.stop.Store(true)
}

// StopRequested reports whether RequestStop was called for the running job.
func (e *Engine) StopRequested() bool {
	return e.stop.Load()
}

func (e *Engine) setStatus(msg string) {
	e.stateMu.Lock()
	e.status = msg
	e.stateMu.Unlock()
}

func (e *Engine) setProgress(done, total int) {
	p := 1.0
	if total > 0 {
		p = float64(done) / float64(total)
	}
	e.stateMu.Lock()
	e.progress = p
	e.stateMu.Unlock()
}

// worker processes jobs until the engine stops.
func (e *Engine) worker() {
	defer e.wg.Done()

	e.logger.Debug("background worker started")

	for {
		if e.ctx.Err() != nil {
			return
		}
		if e.processNextJob() {
			continue
		}
		select {
		case <-e.ctx.Done():
			e.logger.Debug("background worker stopping")
			return
		case <-e.jobNotify:
		case <-time.After(e.cfg.IdlePoll):
			// Periodic check for jobs (in case notification was missed)
		}
	}
}

// processNextJob pops and runs one job. It reports whether a job ran.
func (e *Engine) processNextJob() bool {
	if err := e.qmu.Lock(e.ctx); err != nil {
		if !errors.Is(err, errors.ErrCanceled) {
			e.logger.Debug("queue busy", slog.Any("error", err))
		}
		return false
	}
	if len(e.queue) == 0 {
		e.busy.Store(false)
		e.qmu.Unlock()
		return false
	}
	next := e.queue[0]
	e.queue[0] = pending{}
	e.queue = e.queue[1:]
	depth := len(e.queue)
	e.busy.Store(true)
	e.qmu.Unlock()
	metrics.QueueDepth.Set(float64(depth))

	res := e.execute(next.job)

	e.setStatus(StatusIdle)
	e.busy.Store(false)
	next.done <- res
	return true
}

func (e *Engine) execute(job domain.Job) domain.JobResult {
	start := e.now()
	e.stop.Store(false)
	e.setProgress(0, 1)

	log := e.logger.With(slog.String("job_id", job.ID), slog.String("kind", job.Kind.String()))
	log.Info("job started", slog.String("target", job.Target))

	var res domain.JobResult
	switch job.Kind {
	case domain.JobMetadataLookup:
		res = e.runLookup(e.ctx, job)
	case domain.JobBulkSync:
		res = e.runBulkSync(e.ctx, job, log)
	case domain.JobCoverDownload:
		res = e.runCoverDownload(e.ctx, job, log)
	case domain.JobLyricsFetch:
		res = e.runLyrics(e.ctx, job, log)
	default:
		res.Message = "Unknown Job"
	}
	res.JobID = job.ID
	res.Kind = job.Kind
	res.Finished = e.now()
	e.setProgress(1, 1)

	metrics.JobsTotal.WithLabelValues(job.Kind.String(), boolLabel(res.Success)).Inc()
	metrics.JobDuration.WithLabelValues(job.Kind.String()).Observe(res.Finished.Sub(start).Seconds())
	log.Info("job finished",
		slog.Bool("success", res.Success),
		slog.String("message", res.Message),
		slog.Duration("took", res.Finished.Sub(start)),
	)
	return res
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// retry runs fn up to MaxRetries+1 times while it fails with a transient
// error.
func (e *Engine) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if werr := e.pause(ctx, e.cfg.ItemPacing*time.Duration(attempt)); werr != nil {
				return err
			}
		}
		err = fn()
		if err == nil || !transient(err) {
			return err
		}
		e.logger.Debug("retrying collaborator call", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return err
}

func transient(err error) bool {
	switch errors.CodeOf(err) {
	case errors.CodeNetwork, errors.CodeLockTimeout:
		return true
	default:
		return false
	}
}

// pause sleeps for d unless ctx ends first.
func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
