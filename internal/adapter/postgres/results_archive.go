package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
)

const (
	insertResultsSQL = `INSERT INTO poll_results (id, session_id, question, anonymous, total_responses, responses, closed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	latestResultsSQL = `SELECT session_id, question, anonymous, total_responses, responses, closed_at
FROM poll_results
WHERE session_id = $1
ORDER BY closed_at DESC
LIMIT 1`
)

// ResultsArchive stores closed poll results in the poll_results table.
// Calls go through a circuit breaker so a database outage does not stall
// closing polls.
type ResultsArchive struct {
	pool *pgxpool.Pool
	cb   *gobreaker.CircuitBreaker
}

var _ domain.ResultsArchive = (*ResultsArchive)(nil)

func NewResultsArchive(pool *pgxpool.Pool, m *metrics.BreakerMetrics) *ResultsArchive {
	settings := gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrResultsNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			m.Record(name, to.String(), breakerStateValue(to))
		},
	}
	return &ResultsArchive{pool: pool, cb: gobreaker.NewCircuitBreaker(settings)}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (a *ResultsArchive) Save(ctx context.Context, results *domain.PollResults) error {
	responses, err := json.Marshal(results.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	_, err = a.cb.Execute(func() (any, error) {
		_, err := a.pool.Exec(ctx, insertResultsSQL,
			uuid.New(),
			results.SessionID,
			results.Question,
			results.Anonymous,
			results.TotalResponses,
			responses,
			results.ClosedAt,
		)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("archive results of session %s: %w", results.SessionID, err)
	}
	return nil
}

func (a *ResultsArchive) Latest(ctx context.Context, sessionID string) (*domain.PollResults, error) {
	out, err := a.cb.Execute(func() (any, error) {
		var (
			res       domain.PollResults
			responses []byte
		)
		err := a.pool.QueryRow(ctx, latestResultsSQL, sessionID).Scan(
			&res.SessionID,
			&res.Question,
			&res.Anonymous,
			&res.TotalResponses,
			&responses,
			&res.ClosedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResultsNotFound
		}
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(responses, &res.Responses); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
		res.ClosedAt = res.ClosedAt.UTC()
		return &res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load results of session %s: %w", sessionID, err)
	}
	return out.(*domain.PollResults), nil
}

// Ping reports whether the database answers.
func (a *ResultsArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}
