package nbastats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// Client implements the ports.StatsFeed interface against the NBA stats
// JSON API (game logs in the resultSets headers/rowSet shape).
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
	maxRetries int
	minBackoff time.Duration
	maxBackoff time.Duration
}

// Config holds configuration specific to the stats feed client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Logger     ports.Logger
}

// New creates a new stats feed client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for stats feed client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for stats feed client: %w", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
		maxRetries: maxRetries,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}, nil
}

// gameLogResponse mirrors the feed's game log payload: one result set whose
// rows are positional arrays described by a parallel headers array.
type gameLogResponse struct {
	ResultSets []struct {
		Headers []string            `json:"headers"`
		RowSet  [][]json.RawMessage `json:"rowSet"`
	} `json:"resultSets"`
}

// rosterResponse mirrors the feed's player list payload.
type rosterResponse struct {
	Player []struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
	} `json:"player"`
}

// FetchGameLog returns the player's game log in chronological order (most
// recent game last). The feed reports games most recent first, so the rows
// are reversed here. Non-numeric cells (dates, matchup strings, win/loss
// flags) are dropped; only numeric stat categories survive into the rows.
func (c *Client) FetchGameLog(ctx context.Context, playerID int64) ([]domain.GameStatRow, error) {
	var payload gameLogResponse
	path := fmt.Sprintf("/players/%d/game_log", playerID)
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("fetch game log for player %d: %w", playerID, err)
	}

	if len(payload.ResultSets) == 0 {
		c.logger.Warn(ctx, "Game log response missing result sets", map[string]interface{}{"playerID": playerID})
		return nil, fmt.Errorf("player %d game log has no result sets: %w", playerID, ports.ErrStatsUnavailable)
	}
	set := payload.ResultSets[0]

	rows := make([]domain.GameStatRow, 0, len(set.RowSet))
	// Iterate the feed rows backwards so the result is chronological.
	for i := len(set.RowSet) - 1; i >= 0; i-- {
		cells := set.RowSet[i]
		row := make(domain.GameStatRow)
		for j, header := range set.Headers {
			if j >= len(cells) {
				break
			}
			var value float64
			if err := json.Unmarshal(cells[j], &value); err != nil {
				continue // non-numeric cell
			}
			row[header] = value
		}
		rows = append(rows, row)
	}
	c.logger.Debug(ctx, "Fetched game log", map[string]interface{}{"playerID": playerID, "games": len(rows)})
	return rows, nil
}

// FetchRoster returns the tradable player population.
func (c *Client) FetchRoster(ctx context.Context) ([]domain.RosterEntry, error) {
	var payload rosterResponse
	if err := c.getJSON(ctx, "/players/list", &payload); err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	roster := make([]domain.RosterEntry, 0, len(payload.Player))
	for _, p := range payload.Player {
		roster = append(roster, domain.RosterEntry{PlayerID: p.ID, Name: p.FullName})
	}
	c.logger.Debug(ctx, "Fetched roster", map[string]interface{}{"players": len(roster)})
	return roster, nil
}

// getJSON performs a GET with retries and decodes the JSON body into out.
// Server errors and transport failures are retried with exponential backoff
// and jitter; client errors (4xx) are not and map to ErrStatsUnavailable.
// Exhausting the retry budget maps to ErrFeedUnavailable instead: the feed
// itself is unreachable, not just this player's data.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path
	retry := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    c.maxBackoff,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retry.Duration()
			c.logger.Debug(ctx, "Retrying stats feed request", map[string]interface{}{
				"url": url, "attempt": attempt, "delay": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("stats feed request canceled: %w", ports.ErrContextCanceled)
			}
		}

		body, retryable, err := c.doGet(ctx, url)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode stats feed response from %s: %w", url, ports.ErrStatsUnavailable)
			}
			return nil
		}
		lastErr = err
		if !retryable {
			return fmt.Errorf("stats feed request to %s failed: %v: %w", url, lastErr, ports.ErrStatsUnavailable)
		}
	}
	return fmt.Errorf("stats feed request to %s failed after %d attempts: %v: %w", url, c.maxRetries+1, lastErr, ports.ErrFeedUnavailable)
}

// doGet performs a single GET. The second return value reports whether the
// failure is worth retrying.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, true, err // network failure or client timeout
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("server error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("client error %d", resp.StatusCode)
	}
	return body, false, nil
}
