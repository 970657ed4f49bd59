package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// KafkaNotifier despacha o evento bet_placed após o commit da aposta.
// O envio é fire-and-forget: falha é logada e nunca desfaz a aposta.
type KafkaNotifier struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaNotifier(w *kafka.Writer, log *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, log: log}
}

// NotifyBetPlaced publica o evento com timeout próprio, desacoplado do
// request que originou a aposta
func (n *KafkaNotifier) NotifyBetPlaced(e events.BetPlaced) {
	e.TsUnixMs = time.Now().UnixMilli()

	b, err := json.Marshal(e)
	if err != nil {
		n.log.Warn("bet placed notify marshal failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg := kafka.Message{Key: []byte(e.BetID), Value: b, Time: time.Now()}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.log.Warn("bet placed notify failed", zap.String("bet_id", e.BetID), zap.Error(err))
	}
}

// Close finaliza o writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
