package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Erros tipados do fornecedor upstream. Callers decidem fallback de
// cache com errors.Is.
var (
	ErrNetwork     = errors.New("provider network error")
	ErrRateLimited = errors.New("provider rate limited")
	ErrMalformed   = errors.New("provider malformed response")
)

// Client consome a API HTTP do fornecedor de odds.
// O fornecedor é tratado como não-confiável: todo request tem timeout.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New cria o cliente do fornecedor com timeout limitado
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Sport é um esporte disponível no fornecedor
type Sport struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Outcome é um preço em odds americanas dentro de um mercado
type Outcome struct {
	Name  string  `json:"name"`  // "home", "away", "over", "under"
	Price int     `json:"price"` // odds americanas (inteiro com sinal)
	Point float64 `json:"point,omitempty"`
}

type Market struct {
	Key      string    `json:"key"` // "h2h", "spreads", "totals"
	Outcomes []Outcome `json:"outcomes"`
}

// Game é a representação crua de um jogo conforme o fornecedor
type Game struct {
	ID        string   `json:"id"`
	SportKey  string   `json:"sport_key"`
	HomeTeam  string   `json:"home_team"`
	AwayTeam  string   `json:"away_team"`
	Status    string   `json:"status"` // "scheduled", "live", "finished"
	Completed bool     `json:"completed"`
	Markets   []Market `json:"markets"`
}

// FetchSportOdds busca as odds correntes de todos os jogos de um esporte
func (c *Client) FetchSportOdds(ctx context.Context, sportCode string) ([]Game, error) {
	u := fmt.Sprintf("%s/v1/sports/%s/odds?apiKey=%s", c.BaseURL, url.PathEscape(sportCode), url.QueryEscape(c.APIKey))

	var games []Game
	if err := c.fetch(ctx, u, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// FetchAvailableSports lista os esportes ativos no fornecedor
func (c *Client) FetchAvailableSports(ctx context.Context) ([]Sport, error) {
	u := fmt.Sprintf("%s/v1/sports?apiKey=%s", c.BaseURL, url.QueryEscape(c.APIKey))

	var sports []Sport
	if err := c.fetch(ctx, u, &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

// fetch executa um GET JSON e mapeia falhas para os erros tipados
func (c *Client) fetch(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http 429", ErrRateLimited)
	case res.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: http %d: %s", ErrNetwork, res.StatusCode, string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
