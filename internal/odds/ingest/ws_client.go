package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// LiveMarker marca um jogo como ao vivo e dispara o re-sync do esporte.
type LiveMarker interface {
	MarkLive(ctx context.Context, gameID, sportID string) error
}

// StatusUpdate é a mensagem do feed de despacho do fornecedor.
type StatusUpdate struct {
	GameID  string `json:"gameId"`
	SportID string `json:"sportId"`
	Status  string `json:"status"` // "scheduled" | "live" | "finished"
}

// WSClient consome o feed WebSocket de mudanças de status de jogos e
// alimenta o conjunto de jogos ao vivo.
type WSClient struct {
	URL  string
	Log  *zap.Logger
	Odds LiveMarker
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar automaticamente com backoff.
func (c *WSClient) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		default:
			if err := c.connectAndListen(ctx); err != nil {
				c.Log.Warn("connection closed", zap.Error(err))
				time.Sleep(3 * time.Second) // Aguarda antes de tentar reconectar
			}
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens recebidas.
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to dispatch WS", zap.String("url", c.URL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Log.Error("read message failed", zap.Error(err))
			return err
		}

		c.handleMessage(ctx, message)
	}
}

// handleMessage processa uma mensagem do feed; apenas transições para
// "live" interessam, o sync cuida de "finished" na próxima passada.
func (c *WSClient) handleMessage(ctx context.Context, message []byte) {
	var update StatusUpdate
	if err := json.Unmarshal(message, &update); err != nil {
		c.Log.Warn("invalid message", zap.Error(err))
		return
	}
	if update.GameID == "" || update.Status != events.GameLive {
		return
	}

	if err := c.Odds.MarkLive(ctx, update.GameID, update.SportID); err != nil {
		c.Log.Error("failed to mark game live",
			zap.String("game", update.GameID),
			zap.String("sport", update.SportID),
			zap.Error(err))
		return
	}
	c.Log.Info("game marked live",
		zap.String("game", update.GameID),
		zap.String("sport", update.SportID))
}
