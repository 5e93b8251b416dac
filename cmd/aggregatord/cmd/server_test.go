package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

type fakeFeed struct {
	round types.Round
	found bool
	now   time.Time
}

func (f fakeFeed) LatestRound() (types.Round, bool) { return f.round, f.found }
func (f fakeFeed) Now() time.Time { return f.now }
func (f fakeFeed) Timeout() time.Duration { return time.Minute }

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, NewServer(0, fakeFeed{}), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BasicHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Timestamp)
}

func TestFeedEndpoint(t *testing.T) {
	now := time.Unix(1_700_000_600, 0)
	answer := types.NewSubmission(150)
	answered := types.Round{RoundID: 4, Answer: &answer, UpdatedAt: uint64(now.Unix()) - 30, AnsweredInRound: 4}

	tests := []struct {
		name   string
		feed   fakeFeed
		code   int
		status string
	}{
		{"no answer", fakeFeed{now: now}, http.StatusServiceUnavailable, "no_answer"},
		{"fresh", fakeFeed{round: answered, found: true, now: now}, http.StatusOK, "fresh"},
		{"stale", fakeFeed{round: answered, found: true, now: now.Add(time.Hour)}, http.StatusServiceUnavailable, "stale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, NewServer(0, tt.feed), "/health/feed")
			require.Equal(t, tt.code, rec.Code)

			var resp FeedHealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Equal(t, tt.status, resp.Status)
			require.Equal(t, int64(60), resp.TimeoutSeconds)
			if tt.feed.found {
				require.Equal(t, uint64(4), resp.LatestRound)
				require.Equal(t, "[150]", resp.Answer)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(0, fakeFeed{})
	get(t, srv, "/health/feed")

	rec := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "paw_aggregator_feed_fresh")
	require.Contains(t, rec.Body.String(), "paw_aggregator_health_check_total")
}
