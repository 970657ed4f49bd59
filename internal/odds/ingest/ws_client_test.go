package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeMarker struct {
	calls [][2]string
	err   error
}

func (f *fakeMarker) MarkLive(_ context.Context, gameID, sportID string) error {
	f.calls = append(f.calls, [2]string{gameID, sportID})
	return f.err
}

func TestHandleMessageMarksLiveGames(t *testing.T) {
	marker := &fakeMarker{}
	c := &WSClient{Log: zap.NewNop(), Odds: marker}

	c.handleMessage(context.Background(), []byte(`{"gameId":"g1","sportId":"basketball_nba","status":"live"}`))

	if len(marker.calls) != 1 {
		t.Fatalf("MarkLive calls = %d, want 1", len(marker.calls))
	}
	if marker.calls[0] != [2]string{"g1", "basketball_nba"} {
		t.Errorf("call = %v", marker.calls[0])
	}
}

func TestHandleMessageIgnoresOtherTransitions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"scheduled", `{"gameId":"g1","sportId":"s1","status":"scheduled"}`},
		{"finished", `{"gameId":"g1","sportId":"s1","status":"finished"}`},
		{"missing game id", `{"sportId":"s1","status":"live"}`},
		{"malformed json", `{"gameId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := &fakeMarker{}
			c := &WSClient{Log: zap.NewNop(), Odds: marker}

			c.handleMessage(context.Background(), []byte(tt.raw))

			if len(marker.calls) != 0 {
				t.Errorf("MarkLive called for %s", tt.name)
			}
		})
	}
}

func TestHandleMessageSurvivesMarkerFailure(t *testing.T) {
	marker := &fakeMarker{err: errors.New("redis down")}
	c := &WSClient{Log: zap.NewNop(), Odds: marker}

	// Must not panic; the feed keeps flowing.
	c.handleMessage(context.Background(), []byte(`{"gameId":"g1","sportId":"s1","status":"live"}`))
}
