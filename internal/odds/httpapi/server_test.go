package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/orchestrator"
	"github.com/radieske/odds-engine/internal/odds/sync"
	"github.com/radieske/odds-engine/pkg/contracts/events"
)

type fakeOdds struct {
	result  orchestrator.Result
	syncErr error
	sports  []string
	lookup  orchestrator.Lookup
	lookErr error

	syncCalls  []string
	forceCalls []string
}

func (f *fakeOdds) SyncSport(_ context.Context, sportID string) (orchestrator.Result, error) {
	f.syncCalls = append(f.syncCalls, sportID)
	return f.result, f.syncErr
}

func (f *fakeOdds) ForceSync(_ context.Context, sportID string) (orchestrator.Result, error) {
	f.forceCalls = append(f.forceCalls, sportID)
	return f.result, f.syncErr
}

func (f *fakeOdds) SupportedSports(_ context.Context) []string { return f.sports }

func (f *fakeOdds) GameOdds(_ context.Context, _ string) (orchestrator.Lookup, error) {
	return f.lookup, f.lookErr
}

func TestListSports(t *testing.T) {
	api := &API{Log: zap.NewNop(), Odds: &fakeOdds{sports: []string{"basketball_nba", "soccer_epl"}}}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sports", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Sports []string `json:"sports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Sports) != 2 {
		t.Errorf("sports = %v, want 2 entries", resp.Sports)
	}
}

func TestGetSportOddsReportsSyncMetadata(t *testing.T) {
	odds := &fakeOdds{result: orchestrator.Result{
		Result: sync.Result{
			SportID:    "basketball_nba",
			Games:      []events.GameOdds{{GameID: "g1"}},
			FromCache:  true,
			IsStale:    false,
			AgeSeconds: 4,
		},
		DBPersisted: true,
	}}
	api := &API{Log: zap.NewNop(), Odds: odds}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sports/basketball_nba/odds", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp orchestrator.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.FromCache || !resp.DBPersisted || resp.AgeSeconds != 4 {
		t.Errorf("metadata lost in response: %+v", resp)
	}
	if odds.syncCalls[0] != "basketball_nba" {
		t.Errorf("synced %q, want basketball_nba", odds.syncCalls[0])
	}
}

func TestGetSportOddsUpstreamFailure(t *testing.T) {
	api := &API{Log: zap.NewNop(), Odds: &fakeOdds{syncErr: sync.ErrNoUsableOdds}}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sports/basketball_nba/odds", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGetGameOdds(t *testing.T) {
	api := &API{Log: zap.NewNop(), Odds: &fakeOdds{lookup: orchestrator.Lookup{
		Game: events.GameOdds{GameID: "g1"}, Live: true, Fresh: true,
	}}}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/games/g1/odds", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp orchestrator.Lookup
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Game.GameID != "g1" || !resp.Live {
		t.Errorf("unexpected lookup: %+v", resp)
	}
}

func TestGetGameOddsNotFound(t *testing.T) {
	api := &API{Log: zap.NewNop(), Odds: &fakeOdds{lookErr: orchestrator.ErrGameNotFound}}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/games/missing/odds", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetGameOddsInternalError(t *testing.T) {
	api := &API{Log: zap.NewNop(), Odds: &fakeOdds{lookErr: errors.New("redis down")}}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/games/g1/odds", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestTriggerSyncAccepted(t *testing.T) {
	odds := &fakeOdds{result: orchestrator.Result{Result: sync.Result{SportID: "soccer_epl"}}}
	api := &API{Log: zap.NewNop(), Odds: odds}

	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sync/soccer_epl", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(odds.forceCalls) != 1 || odds.forceCalls[0] != "soccer_epl" {
		t.Errorf("force sync calls = %v, want [soccer_epl]", odds.forceCalls)
	}
}
