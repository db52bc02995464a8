package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/engine"
	"github.com/radieske/commitbet-engine/internal/shared/metrics"
)

// Sweeper dispara as transições por tempo (expire e resolve) através dos
// mesmos pontos de entrada usados pelas requisições. Rodar em mais de um
// worker é seguro: o guard de status sob lock faz do replay um no-op.
type Sweeper struct {
	svc   *engine.Service
	log   *zap.Logger
	batch int
}

func New(svc *engine.Service, log *zap.Logger, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{svc: svc, log: log, batch: batch}
}

// RunPass executa uma passada completa, drenando em lotes até não sobrar
// aposta vencida.
func (s *Sweeper) RunPass(ctx context.Context) {
	start := time.Now()
	total := 0
	for {
		swept, err := s.svc.Sweep(ctx, s.batch)
		if err != nil {
			s.log.Error("sweep pass aborted", zap.Error(err))
			return
		}
		total += swept
		if swept < s.batch {
			break
		}
	}
	metrics.SweepPassesTotal.Inc()
	if total > 0 {
		s.log.Info("sweep pass done",
			zap.Int("transitions", total), zap.Duration("took", time.Since(start)))
	}
}
