package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// KafkaPublisher propaga snapshots recém-buscados no tópico odds_updates
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(w *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

// PublishOddsUpdate envia o snapshot com chave por jogo, garantindo ordem
// por partição para consumidores downstream
func (p *KafkaPublisher) PublishOddsUpdate(ctx context.Context, g events.GameOdds) error {
	value, err := json.Marshal(g)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(g.GameID),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.log.Debug("published odds update", zap.String("game_id", g.GameID))
	return nil
}

// Close finaliza o writer e libera recursos associados
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
