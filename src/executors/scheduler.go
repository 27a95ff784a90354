package executors

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
)

type marketClient interface {
	marketSearcher
	orderPlacer
}

type adRepository interface {
	adWriter
	adMatcher
}

type exceptionWriter interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// RunStatus is the externally visible state of the scheduler.
type RunStatus struct {
	Running        bool       `json:"running"`
	FetchLastRun   *time.Time `json:"fetch_last_run,omitempty"`
	ExecuteLastRun *time.Time `json:"execute_last_run,omitempty"`
}

// JobScheduler owns the fetch and order loops of one engine. It is either
// Idle or Running; Start and Stop move between the two, Status reads without
// side effects. Cancellation is cooperative: loops observe it at the top of
// every cycle and right after every sleep, so Stop halts progress within one
// sleep interval in the worst case and never mid-submission.
type JobScheduler struct {
	client     marketClient
	ads        adRepository
	attempts   attemptWriter
	exceptions exceptionWriter
	notifier   notifier
	spot       spotPricer
	config     Config

	mu             sync.Mutex
	running        bool
	cancel         context.CancelFunc
	done           chan struct{}
	session        *model.TradeConfig
	fetchLastRun   *time.Time
	executeLastRun *time.Time
}

// NewJobScheduler wires a scheduler; spot may be nil when no reference price
// stream is running.
func NewJobScheduler(
	client marketClient,
	ads adRepository,
	attempts attemptWriter,
	exceptions exceptionWriter,
	n notifier,
	spot spotPricer,
) *JobScheduler {
	return &JobScheduler{
		client:     client,
		ads:        ads,
		attempts:   attempts,
		exceptions: exceptions,
		notifier:   n,
		spot:       spot,
		config:     GetConfig(),
	}
}

// Start launches both loops for the given session. Calling Start while
// already running only refreshes the session reference; counters are reset
// only when a run actually begins.
func (s *JobScheduler) Start(parent context.Context, session *model.TradeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.session = session
		logger.Info("scheduler already running, session reference refreshed")
		return
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.session = session
	s.done = make(chan struct{})
	s.running = true

	state := NewExecutionState(session.TotalAmountToInvest)

	fetcher := &AdFetcher{
		client:   s.client,
		ads:      s.ads,
		notifier: s.notifier,
		session:  s.currentSession,
		interval: s.config.FetchInterval,
		onCycle:  s.markFetchRun,
	}

	executor := &OrderExecutor{
		client:       s.client,
		ads:          s.ads,
		attempts:     s.attempts,
		notifier:     s.notifier,
		spot:         s.spot,
		session:      s.currentSession,
		state:        state,
		interval:     s.config.ExecuteInterval,
		orderSpacing: s.config.OrderSpacing,
		onCycle:      s.markExecuteRun,
	}

	logger.WithFields(map[string]interface{}{
		"session": state.SessionID,
		"asset":   session.Asset,
		"fiat":    session.Fiat,
		"budget":  session.TotalAmountToInvest.String(),
	}).Info("scheduler starting")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := fetcher.Run(ctx); err != nil {
			s.fail(ctx, "fetch_loop", err)
			cancel()
		}
	}()

	go func() {
		defer wg.Done()
		if err := executor.Run(ctx); err != nil {
			s.fail(ctx, "order_loop", err)
			cancel()
		}
	}()

	done := s.done
	go func() {
		wg.Wait()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
		logger.Info("scheduler idle, both loops exited")
	}()
}

// Stop requests cancellation and blocks until both loops have observably
// exited. Safe to call when already idle.
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	running := s.running
	s.mu.Unlock()

	if !running {
		return
	}

	logger.Info("scheduler stop requested")
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status reports the running flag and last-completed cycle times.
func (s *JobScheduler) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return RunStatus{
		Running:        s.running,
		FetchLastRun:   s.fetchLastRun,
		ExecuteLastRun: s.executeLastRun,
	}
}

func (s *JobScheduler) currentSession() *model.TradeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *JobScheduler) markFetchRun(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchLastRun = &t
}

func (s *JobScheduler) markExecuteRun(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executeLastRun = &t
}

// fail records a fatal loop failure and alerts the operator; the caller
// cancels the sibling loop so the run winds down instead of spinning.
func (s *JobScheduler) fail(ctx context.Context, module string, err error) {
	logger.WithError(err).WithField("module", module).
		Error("loop failed, stopping run")

	if s.exceptions != nil {
		context_, _ := json.Marshal(map[string]string{"module": module})
		if excErr := s.exceptions.Create(context.WithoutCancel(ctx), &model.Exception{
			Service: "c2c_executor",
			Module:  module,
			Method:  "Run",
			Message: err.Error(),
			Level:   "error",
			Context: string(context_),
		}); excErr != nil {
			logger.WithError(excErr).Warn("could not persist exception")
		}
	}

	if notifyErr := s.notifier.Notify(context.WithoutCancel(ctx), notify.KindAlert,
		"Engine stopped: "+err.Error(), nil); notifyErr != nil {
		logger.WithError(notifyErr).Warn("could not deliver stop alert")
	}
}
