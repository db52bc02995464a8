package main

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/engine"
	"github.com/radieske/commitbet-engine/internal/engine/repo"
	"github.com/radieske/commitbet-engine/internal/ledger"
	"github.com/radieske/commitbet-engine/internal/notifier"
	"github.com/radieske/commitbet-engine/internal/readmodel"
	"github.com/radieske/commitbet-engine/internal/shared/cache"
	"github.com/radieske/commitbet-engine/internal/shared/config"
	"github.com/radieske/commitbet-engine/internal/shared/db"
	skafka "github.com/radieske/commitbet-engine/internal/shared/kafka"
	"github.com/radieske/commitbet-engine/internal/shared/logger"
	"github.com/radieske/commitbet-engine/internal/shared/metrics"
	"github.com/radieske/commitbet-engine/internal/sweeper"
)

// O deadline-sweeper injeta expire/resolve pelos mesmos pontos de entrada das
// requisições. Pode rodar junto com a API e em múltiplas réplicas: o guard de
// status sob lock torna a corrida benigna.
func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "deadline-sweeper"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetNotifications)
	defer writer.Close()

	led := ledger.Ledger{StartingBalance: cfg.StartingBalance}
	store := repo.NewPostgres(pg, led)

	svc := engine.NewService(store,
		engine.Rules{ProofWindow: cfg.ProofWindow, AutoAccept: cfg.ChallengeAutoAccept},
		engine.WithCache(readmodel.New(rdb, cfg.BetViewTTL, log)),
		engine.WithNotifier(notifier.NewKafka(writer, log)),
		engine.WithLogger(log),
	)
	sw := sweeper.New(svc, log, 100)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.SweepCron, func() {
		sw.RunPass(context.Background())
	}); err != nil {
		log.Fatal("cron spec", zap.String("spec", cfg.SweepCron), zap.Error(err))
	}

	log.Info("deadline-sweeper started", zap.String("cron", cfg.SweepCron))
	c.Start()
	select {}
}
