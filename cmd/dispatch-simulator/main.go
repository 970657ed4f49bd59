package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/bet/fraud"
	"github.com/radieske/odds-engine/internal/odds/ingest"
	"github.com/radieske/odds-engine/internal/shared/config"
	"github.com/radieske/odds-engine/internal/shared/logger"
	"github.com/radieske/odds-engine/pkg/contracts/events"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Catálogo fixo de jogos simulados para transições de status
	gameCatalog = []ingest.StatusUpdate{
		{GameID: "GAME_001", SportID: "basketball_nba", Status: events.GameScheduled},
		{GameID: "GAME_002", SportID: "basketball_nba", Status: events.GameScheduled},
		{GameID: "GAME_003", SportID: "americanfootball_nfl", Status: events.GameScheduled},
		{GameID: "GAME_004", SportID: "soccer_epl", Status: events.GameScheduled},
	}

	// Métricas Prometheus para monitoramento de conexões e mensagens
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_ws_messages_sent_total",
		Help: "Total de mensagens WS enviadas",
	})
)

type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os clientes conectados via WebSocket e faz broadcast
// das transições de status para todos eles.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// broadcast envia uma mensagem para todos os clientes conectados
func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		} else {
			wsMessagesSent.Inc()
		}
	}
}

// fraudHandler responde checagens de risco (mock): 90% liberado
func fraudHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req fraud.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	score := rand.Float64()
	resp := fraud.CheckResult{Allowed: true, RiskLevel: fraud.RiskLow, RiskScore: score}
	switch {
	case score > 0.9:
		resp = fraud.CheckResult{
			Allowed:   false,
			RiskLevel: fraud.RiskHigh,
			RiskScore: score,
			Action:    "verify",
			Message:   "fraud_reject_mock",
		}
	case score > 0.7:
		resp.RiskLevel = fraud.RiskMedium
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, wsMessagesSent)

	h := newHub(log)

	// Alterna jogos do catálogo entre scheduled/live/finished a cada 5s
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		statuses := []string{events.GameScheduled, events.GameLive, events.GameFinished}
		for range ticker.C {
			i := rand.Intn(len(gameCatalog))
			up := gameCatalog[i]
			up.Status = statuses[rand.Intn(len(statuses))]
			gameCatalog[i] = up
			h.broadcast(up)
		}
	}()

	// ==== MUX PÚBLICO: /ws/live e /fraud/check
	appMux := http.NewServeMux()

	appMux.HandleFunc("/ws/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			_ = conn.SetReadDeadline(time.Time{})
			for {
				// Lê e descarta mensagens do cliente para manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	appMux.HandleFunc("/fraud/check", fraudHandler)

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("dispatch simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("dispatch simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/ws/live,/fraud/check"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
