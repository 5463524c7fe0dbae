package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
)

// LocalSweeper sweeps expired sessions on an in-process ticker. Used when
// Redis/asynq is not configured.
type LocalSweeper struct {
	provider ports.AuthProvider
	interval time.Duration
	log      zerolog.Logger
}

func NewLocalSweeper(provider ports.AuthProvider, interval time.Duration, log zerolog.Logger) *LocalSweeper {
	return &LocalSweeper{provider: provider, interval: interval, log: log}
}

// Run blocks until the context is cancelled.
func (s *LocalSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.provider.CleanExpiredSessions(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			sessionsSwept.Add(float64(count))
		}
	}
}
