package orphans

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type Releaser interface {
	Release(ctx context.Context, ref string) error
}

type SweepResult struct {
	Released int
	Failed   int
	Dropped  int
}

// Sweeper retries releasing recorded orphans.
type Sweeper struct {
	ledger      Ledger
	releaser    Releaser
	log         *zap.Logger
	batch       int
	maxAttempts int
}

func NewSweeper(ledger Ledger, releaser Releaser, log *zap.Logger, batch, maxAttempts int) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if batch <= 0 {
		batch = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Sweeper{ledger: ledger, releaser: releaser, log: log, batch: batch, maxAttempts: maxAttempts}
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	pending, err := s.ledger.Pending(ctx, s.batch)
	if err != nil {
		return res, fmt.Errorf("sweep: %w", err)
	}

	for _, o := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		if o.Attempts >= s.maxAttempts {
			s.log.Error("giving up on orphaned asset",
				zap.String("public_id", o.Ref),
				zap.Int("attempts", o.Attempts),
				zap.String("last_error", o.LastError),
			)
			if err := s.ledger.Resolve(ctx, o.Ref); err != nil {
				return res, err
			}
			res.Dropped++
			continue
		}

		if relErr := s.releaser.Release(ctx, o.Ref); relErr != nil {
			s.log.Warn("orphan release failed", zap.String("public_id", o.Ref), zap.Error(relErr))
			if err := s.ledger.Retry(ctx, o, relErr); err != nil {
				return res, err
			}
			res.Failed++
			continue
		}

		if err := s.ledger.Resolve(ctx, o.Ref); err != nil {
			return res, err
		}
		res.Released++
	}

	s.log.Info("orphan sweep finished",
		zap.Int("released", res.Released),
		zap.Int("failed", res.Failed),
		zap.Int("dropped", res.Dropped),
	)
	return res, nil
}
