package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
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
	ev "github.com/radieske/commitbet-engine/pkg/contracts/events"
)

// O moderation-worker consome os vereditos assíncronos do serviço externo de
// validação de conteúdo. Veredito "invalid" força o efeito de cancel a partir
// de qualquer estado vivo — mesmo com challenges já apostados.
func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "moderation-worker"
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

	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicModerationVerdicts, "moderation-worker")
	defer reader.Close()

	notifWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetNotifications)
	defer notifWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicModerationVerdictDLQ != "" {
		dlqWriter = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicModerationVerdictDLQ)
		defer dlqWriter.Close()
	}

	led := ledger.Ledger{StartingBalance: cfg.StartingBalance}
	store := repo.NewPostgres(pg, led)
	svc := engine.NewService(store,
		engine.Rules{ProofWindow: cfg.ProofWindow, AutoAccept: cfg.ChallengeAutoAccept},
		engine.WithCache(readmodel.New(rdb, cfg.BetViewTTL, log)),
		engine.WithNotifier(notifier.NewKafka(notifWriter, log)),
		engine.WithLogger(log),
	)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("moderation-worker started", zap.String("consume", cfg.TopicModerationVerdicts))

	ctx := context.Background()
	for {
		key, value, err := skafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var verdict ev.ModerationVerdict
		if jerr := json.Unmarshal(value, &verdict); jerr != nil {
			log.Error("unmarshal moderation verdict", zap.ByteString("key", key), zap.Error(jerr))
			continue
		}

		if err := processVerdict(ctx, log, svc, &verdict); err != nil {
			log.Error("process verdict", zap.String("betId", verdict.BetID), zap.Error(err))
			if dlqWriter != nil {
				_ = skafka.WriteJSON(ctx, dlqWriter, verdict.BetID, value)
			}
		}
	}
}

// processVerdict aplica o veredito: "valid" é no-op; "invalid" cancela com
// reembolso integral. Aposta já terminal (ou inexistente) é sinal atrasado,
// não erro.
func processVerdict(ctx context.Context, log *zap.Logger, svc *engine.Service, v *ev.ModerationVerdict) error {
	if v.Verdict != ev.VerdictInvalid {
		return nil
	}
	_, err := svc.ForceCancelBet(ctx, v.BetID, "moderation: "+v.Reason)
	if errors.Is(err, engine.ErrInvalidStateTransition) || errors.Is(err, engine.ErrBetNotFound) {
		log.Info("verdict arrived after terminal state", zap.String("betId", v.BetID))
		return nil
	}
	return err
}
