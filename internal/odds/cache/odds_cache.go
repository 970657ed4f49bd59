package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// RedisCache guarda o último snapshot de odds por jogo, listagens agregadas
// por esporte e o conjunto de jogos ao vivo.
// Retention é o TTL físico no Redis; o julgamento de frescor (soft expiry)
// é responsabilidade do sync, a partir do FetchedAt do snapshot.
type RedisCache struct {
	Client    *redis.Client
	Retention time.Duration
}

// NewRedisCache cria o cache de odds com janela de retenção configurável
func NewRedisCache(c *redis.Client, retention time.Duration) *RedisCache {
	return &RedisCache{Client: c, Retention: retention}
}

func keyGame(gameID string) string   { return "odds:game:" + gameID }
func keySport(sportID string) string { return "odds:sport:" + sportID }

const keyLiveGames = "odds:live_games"

// casWrite só sobrescreve se o fetch timestamp novo for maior que o
// armazenado. Garante ordem monotônica por jogo mesmo com syncs
// concorrentes chegando fora de ordem.
var casWrite = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// listing é o formato armazenado para a listagem agregada de um esporte
type listing struct {
	Games     []events.GameOdds `json:"games"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// GetSnapshot retorna o último snapshot conhecido de um jogo.
// found=false cobre tanto ausência quanto expiração física.
func (r *RedisCache) GetSnapshot(ctx context.Context, gameID string) (*events.GameOdds, bool, error) {
	b, err := r.Client.Get(ctx, keyGame(gameID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var g events.GameOdds
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

// PutSnapshot grava o snapshot de um jogo com compare-and-write pelo
// fetch timestamp. Retorna false quando descartado por ser mais antigo.
func (r *RedisCache) PutSnapshot(ctx context.Context, g events.GameOdds) (bool, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return false, err
	}
	return r.cas(ctx, keyGame(g.GameID), b, g.Odds.FetchedAt)
}

// GetListing retorna a listagem agregada de um esporte e seu fetch time
func (r *RedisCache) GetListing(ctx context.Context, sportID string) ([]events.GameOdds, time.Time, bool, error) {
	b, err := r.Client.Get(ctx, keySport(sportID)).Bytes()
	if err == redis.Nil {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var l listing
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, time.Time{}, false, err
	}
	return l.Games, l.FetchedAt, true, nil
}

// PutListing grava a listagem agregada de um esporte, também com
// compare-and-write para tolerar syncs concorrentes
func (r *RedisCache) PutListing(ctx context.Context, sportID string, games []events.GameOdds, fetchedAt time.Time) (bool, error) {
	b, err := json.Marshal(listing{Games: games, FetchedAt: fetchedAt})
	if err != nil {
		return false, err
	}
	return r.cas(ctx, keySport(sportID), b, fetchedAt)
}

func (r *RedisCache) cas(ctx context.Context, key string, payload []byte, fetchedAt time.Time) (bool, error) {
	n, err := casWrite.Run(ctx, r.Client,
		[]string{key, key + ":ts"},
		payload, fetchedAt.UnixMilli(), r.Retention.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddLiveGame adiciona um jogo ao conjunto de polling ao vivo.
// Membership é aditiva; a saída acontece por expiração do conjunto.
func (r *RedisCache) AddLiveGame(ctx context.Context, gameID string) error {
	return r.Client.SAdd(ctx, keyLiveGames, gameID).Err()
}

// IsLive informa se o jogo está sob polling de baixa latência
func (r *RedisCache) IsLive(ctx context.Context, gameID string) (bool, error) {
	return r.Client.SIsMember(ctx, keyLiveGames, gameID).Result()
}

// LiveGames retorna os jogos atualmente marcados como ao vivo
func (r *RedisCache) LiveGames(ctx context.Context) ([]string, error) {
	return r.Client.SMembers(ctx, keyLiveGames).Result()
}

// Invalidate remove listagens agregadas do cache sem tocar nas entradas
// por jogo. sportID vazio remove todas as listagens (SCAN incremental).
func (r *RedisCache) Invalidate(ctx context.Context, sportID string) error {
	if sportID != "" {
		return r.Client.Del(ctx, keySport(sportID), keySport(sportID)+":ts").Err()
	}

	iter := r.Client.Scan(ctx, 0, keySport("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := r.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
