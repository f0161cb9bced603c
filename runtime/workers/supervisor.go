package workers

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/errors"
	"batepapo-uol-api/observability"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Supervisor owns a context and its cancel function.
// It runs each worker in a goroutine, recovers panics, restarts failed
// workers after restartInterval and waits for all of them on shutdown.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
	monitoring      *observability.MonitoringManager
}

// NewSupervisor builds a supervisor reporting restarts to monitoring, which may be nil.
func NewSupervisor(log *slog.Logger, restartInterval time.Duration, monitoring *observability.MonitoringManager) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval, monitoring: monitoring}
}

// Run starts every registered worker under a cancellation scope tied to ctx
// and blocks until all of them have returned.
func (s *Supervisor) Run(ctx context.Context) {
	// If the parent cancels, we cancel.
	// If we call s.Cancel(), only our children cancel.
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision.
// If its Run method panics or returns an error, the supervisor restarts it.
// A failure in one worker must not stop the supervisor itself.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			s.monitoring.IncrWorkerRestarts(goerrors.Is(err, errors.ErrWorkerPanic))
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels all supervised workers.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
