package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/api"
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
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bet-engine"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (read model)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (notificações fire-and-forget)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetNotifications)
	defer writer.Close()

	// deps
	led := ledger.Ledger{StartingBalance: cfg.StartingBalance}
	store := repo.NewPostgres(pg, led)
	cache := readmodel.New(rdb, cfg.BetViewTTL, log)
	notif := notifier.NewKafka(writer, log)

	svc := engine.NewService(store,
		engine.Rules{ProofWindow: cfg.ProofWindow, AutoAccept: cfg.ChallengeAutoAccept},
		engine.WithCache(cache),
		engine.WithNotifier(notif),
		engine.WithLogger(log),
	)

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	srv := api.NewServer(log, svc, led, pg)
	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("bet-engine listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
