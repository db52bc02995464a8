package notifier

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/shared/metrics"
	"github.com/radieske/commitbet-engine/pkg/contracts/events"
)

// Kafka publica notificações de ciclo de vida. Fire-and-forget por contrato:
// falha de entrega é logada e contada, nunca propagada — uma resolução já
// persistida não pode ser revertida por notificação perdida.
type Kafka struct {
	writer *kafkago.Writer
	log    *zap.Logger
}

func NewKafka(w *kafkago.Writer, log *zap.Logger) *Kafka {
	return &Kafka{writer: w, log: log}
}

func (k *Kafka) Notify(ctx context.Context, n events.BetNotification) {
	b, _ := json.Marshal(n)

	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := k.writer.WriteMessages(wctx, kafkago.Message{
		Key:   []byte(n.BetID),
		Value: b,
		Time:  time.Now(),
	})
	if err != nil {
		metrics.NotifyFailuresTotal.Inc()
		k.log.Warn("notification publish failed",
			zap.String("kind", n.Kind), zap.String("betId", n.BetID), zap.Error(err))
	}
}
