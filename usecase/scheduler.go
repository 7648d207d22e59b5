package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/infrastructure/logger"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrTaskCancelled       = errors.New("scheduled task was cancelled")
)

// RunFunc executes one relay run when a scheduled task fires.
type RunFunc func(ctx context.Context, req model.RelayRequest) model.DownloadAndUploadResult

// ScheduleRequest describes a delayed relay run.
type ScheduleRequest struct {
	ChannelID       string
	ScheduleID      string
	UserID          string
	AnchorMessageID *int
	VideoTitle      string
	Delay           time.Duration
}

// Future resolves when its task has fired and finished, or was cancelled.
type Future struct {
	Task   model.ScheduledTask
	done   chan struct{}
	result model.DownloadAndUploadResult
	err    error
}

func newFuture(task model.ScheduledTask) *Future {
	return &Future{Task: task, done: make(chan struct{})}
}

func (f *Future) ID() string { return f.Task.ID }

func (f *Future) DueAt() time.Time { return f.Task.DueAt }

// Done is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the run finished, the task was cancelled, or ctx ends.
func (f *Future) Wait(ctx context.Context) (model.DownloadAndUploadResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return model.DownloadAndUploadResult{}, ctx.Err()
	}
}

func (f *Future) resolve(result model.DownloadAndUploadResult, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

type pairKey struct {
	channelID  string
	scheduleID string
}

type scheduledTask struct {
	task   model.ScheduledTask
	timer  *time.Timer
	future *Future
}

// Scheduler holds the live delayed relay runs. At most one task is live per
// (channel, schedule) pair; scheduling again replaces the previous task.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	byPair  map[pairKey]string
	run     RunFunc
	now     func() time.Time
	baseCtx context.Context
	running bool
	wg      sync.WaitGroup
	onCount func(int)
}

func NewScheduler(run RunFunc) *Scheduler {
	return &Scheduler{
		tasks:  make(map[string]*scheduledTask),
		byPair: make(map[pairKey]string),
		run:    run,
		now:    time.Now,
	}
}

// WithTaskCountObserver registers a callback receiving the live task count on every change.
func (s *Scheduler) WithTaskCountObserver(fn func(int)) *Scheduler {
	s.onCount = fn
	return s
}

// Start enables scheduling. Fired runs use a context detached from ctx's
// cancellation so an in-flight run always completes.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.baseCtx = context.WithoutCancel(ctx)
	s.running = true
	logger.GetLogger().Info("Scheduler started")
}

// Stop disarms every pending task and waits for in-flight runs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	pending := len(s.tasks)
	for id, t := range s.tasks {
		t.timer.Stop()
		t.future.resolve(model.DownloadAndUploadResult{}, ErrTaskCancelled)
		delete(s.tasks, id)
	}
	s.byPair = make(map[pairKey]string)
	s.notifyCountLocked()
	s.mu.Unlock()

	logger.GetLogger().WithField("disarmed", pending).Info("Scheduler stopping, draining in-flight runs")

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		logger.GetLogger().Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler drain: %w", ctx.Err())
	}
}

// Schedule registers a delayed run, replacing any live task of the same pair.
func (s *Scheduler) Schedule(req ScheduleRequest) (*Future, error) {
	if req.ChannelID == "" || req.ScheduleID == "" || req.UserID == "" {
		return nil, errors.New("channelID, scheduleID and userID are required")
	}
	if req.Delay < 0 {
		return nil, errors.New("delay must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, ErrSchedulerNotRunning
	}

	key := pairKey{channelID: req.ChannelID, scheduleID: req.ScheduleID}
	if prevID, ok := s.byPair[key]; ok {
		s.cancelLocked(prevID)
		logger.GetLogger().WithField("task_id", prevID).Info("Replaced scheduled task for the same channel and schedule")
	}

	now := s.now()
	task := model.ScheduledTask{
		ID:              fmt.Sprintf("%s_%s_%d", req.ChannelID, req.ScheduleID, now.UnixNano()),
		ChannelID:       req.ChannelID,
		ScheduleID:      req.ScheduleID,
		UserID:          req.UserID,
		AnchorMessageID: req.AnchorMessageID,
		VideoTitle:      req.VideoTitle,
		CreatedAt:       now,
		DueAt:           now.Add(req.Delay),
	}
	entry := &scheduledTask{task: task, future: newFuture(task)}
	entry.timer = time.AfterFunc(req.Delay, func() { s.fire(task.ID) })

	s.tasks[task.ID] = entry
	s.byPair[key] = task.ID
	s.notifyCountLocked()

	logger.GetLogger().WithFields(map[string]interface{}{
		"task_id":    task.ID,
		"channel_id": task.ChannelID,
		"due_at":     task.DueAt,
	}).Info("Scheduled relay task")
	return entry.future, nil
}

// Cancel disarms a live task. It returns false if nothing was cancelled.
func (s *Scheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(taskID)
}

// CancelAll disarms every live task of the pair and returns how many there were.
func (s *Scheduler) CancelAll(channelID, scheduleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, t := range s.tasks {
		if t.task.ChannelID == channelID && t.task.ScheduleID == scheduleID {
			if s.cancelLocked(id) {
				count++
			}
		}
	}
	return count
}

// List returns a snapshot of live tasks ordered by due time.
func (s *Scheduler) List() []model.TaskSummary {
	s.mu.Lock()
	summaries := make([]model.TaskSummary, 0, len(s.tasks))
	for _, t := range s.tasks {
		summaries = append(summaries, model.TaskSummary{
			ID:         t.task.ID,
			ChannelID:  t.task.ChannelID,
			ScheduleID: t.task.ScheduleID,
			UserID:     t.task.UserID,
			DueAt:      t.task.DueAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].DueAt.Before(summaries[j].DueAt) })
	return summaries
}

func (s *Scheduler) cancelLocked(taskID string) bool {
	t, ok := s.tasks[taskID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, taskID)
	key := pairKey{channelID: t.task.ChannelID, scheduleID: t.task.ScheduleID}
	if s.byPair[key] == taskID {
		delete(s.byPair, key)
	}
	t.future.resolve(model.DownloadAndUploadResult{}, ErrTaskCancelled)
	s.notifyCountLocked()
	return true
}

func (s *Scheduler) fire(taskID string) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if !ok || !s.running {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, taskID)
	key := pairKey{channelID: t.task.ChannelID, scheduleID: t.task.ScheduleID}
	if s.byPair[key] == taskID {
		delete(s.byPair, key)
	}
	s.notifyCountLocked()
	s.wg.Add(1)
	ctx := s.baseCtx
	s.mu.Unlock()

	defer s.wg.Done()
	result := s.execute(ctx, t.task)
	t.future.resolve(result, nil)
}

func (s *Scheduler) execute(ctx context.Context, task model.ScheduledTask) (result model.DownloadAndUploadResult) {
	log := logger.GetLogger().WithField("task_id", task.ID).WithField("channel_id", task.ChannelID)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Scheduled relay run panicked")
			result = model.DownloadAndUploadResult{Success: false, ErrorCode: string(apperror.CodeUnknown), Error: fmt.Sprintf("run panicked: %v", r)}
		}
	}()

	log.Info("Scheduled relay task fired")
	result = s.run(ctx, model.RelayRequest{
		ChannelID:       task.ChannelID,
		UserID:          task.UserID,
		AnchorMessageID: task.AnchorMessageID,
		VideoTitle:      task.VideoTitle,
		ScheduleID:      task.ScheduleID,
	})
	if result.Success {
		log.WithField("file_id", result.FileID).Info("Scheduled relay task finished")
	} else {
		log.WithField("error", result.Error).Warn("Scheduled relay task failed")
	}
	return result
}

func (s *Scheduler) notifyCountLocked() {
	if s.onCount != nil {
		s.onCount(len(s.tasks))
	}
}
