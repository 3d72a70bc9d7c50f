package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrStatus is wrapped around unexpected HTTP statuses.
var ErrStatus = errors.New("unexpected status")

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// Entry mirrors one ranked row returned by /rank and /leaderboard.
type Entry struct {
	PlayerID      string  `json:"player_id"`
	TotalPoints   int     `json:"total_points"`
	MatchesWon    int     `json:"matches_won"`
	MatchesPlayed int     `json:"matches_played"`
	WinRate       float64 `json:"win_rate"`
	Rank          int     `json:"rank"`
	Season        string  `json:"season"`
}

// client wraps http.Client with the JSON calls the run needs.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	code, body, err := c.do(req)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %d %s", ErrStatus, path, code, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// submit posts m and classifies the response.
func (c *client) submit(ctx context.Context, m Match, sync bool) (string, error) {
	path := "/matches"
	want := http.StatusAccepted
	if sync {
		path, want = "/matches/sync", http.StatusOK
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return outcomeFailed, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return outcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	code, body, err := c.do(req)
	switch {
	case err != nil:
		return outcomeFailed, err
	case code == want:
		return outcomeAccepted, nil
	case code == http.StatusConflict:
		return outcomeDuplicate, nil
	default:
		return outcomeFailed, fmt.Errorf("%w: POST %s: %d %s", ErrStatus, path, code, bytes.TrimSpace(body))
	}
}

func (c *client) rank(ctx context.Context, playerID, season string) (Entry, error) {
	q := url.Values{}
	if season != "" {
		q.Set("season", season)
	}
	var e Entry
	err := c.getJSON(ctx, "/rank/"+url.PathEscape(playerID), q, &e)
	return e, err
}

func (c *client) top(ctx context.Context, season string, n int) ([]Entry, error) {
	q := url.Values{"limit": {fmt.Sprint(n)}}
	if season != "" {
		q.Set("season", season)
	}
	var entries []Entry
	err := c.getJSON(ctx, "/leaderboard/top", q, &entries)
	return entries, err
}
