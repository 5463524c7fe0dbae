// Package queue runs the periodic expired-session sweep. With Redis
// configured it schedules through asynq so only one instance sweeps; without
// it a local ticker does the same work in-process.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
)

const TypeSweepSessions = "sessions:sweep"

var sessionsSwept = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "authkit_sessions_swept_total",
		Help: "Expired sessions removed by the periodic sweep",
	},
)

// Sweeper is the asynq-backed sweep: a scheduler enqueues the sweep task on
// an interval and the embedded server consumes it.
type Sweeper struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	provider  ports.AuthProvider
	log       zerolog.Logger
}

// NewSweeper registers the sweep task. Call Run() to start.
func NewSweeper(redisOpt asynq.RedisClientOpt, provider ports.AuthProvider, interval time.Duration, log zerolog.Logger) (*Sweeper, error) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		LogLevel:    asynq.InfoLevel,
	})
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{LogLevel: asynq.InfoLevel})
	s := &Sweeper{
		srv:       srv,
		scheduler: scheduler,
		mux:       asynq.NewServeMux(),
		provider:  provider,
		log:       log,
	}
	s.mux.HandleFunc(TypeSweepSessions, s.handleSweep)
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeSweepSessions, nil)); err != nil {
		return nil, fmt.Errorf("registering sweep schedule: %w", err)
	}
	return s, nil
}

func (s *Sweeper) handleSweep(ctx context.Context, _ *asynq.Task) error {
	count, err := s.provider.CleanExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
		return err
	}
	sessionsSwept.Add(float64(count))
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (s *Sweeper) Run() error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	return s.srv.Run(s.mux)
}

// Shutdown stops the scheduler and worker.
func (s *Sweeper) Shutdown() {
	s.scheduler.Shutdown()
	s.srv.Shutdown()
}
