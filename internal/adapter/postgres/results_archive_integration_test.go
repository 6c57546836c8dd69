package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
)

func closedPoll(sessionID string) *domain.Poll {
	return domain.NewPoll(sessionID, domain.StatusClosed, false, "Color?", []domain.Response{
		domain.NewResponse("Red", 2, "alice", "bob"),
		domain.NewResponse("Blue", 1, "carol"),
	}, 3, "alice", "bob", "carol")
}

func TestResultsArchive_SaveAndLatest(t *testing.T) {
	archive := NewResultsArchive(setupTestDB(t), nil)
	ctx := context.Background()
	closedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, archive.Save(ctx, domain.BuildResults(closedPoll("s1"), closedAt)))

	got, err := archive.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "Color?", got.Question)
	assert.Equal(t, 3, got.TotalResponses)
	assert.True(t, closedAt.Equal(got.ClosedAt))
	require.Len(t, got.Responses, 2)
	assert.Equal(t, "Red", got.Responses[0].Text)
	assert.Equal(t, 66.67, got.Responses[0].Percentage)
	assert.Equal(t, []string{"alice", "bob"}, got.Responses[0].Participants)
}

func TestResultsArchive_LatestWins(t *testing.T) {
	archive := NewResultsArchive(setupTestDB(t), nil)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := domain.BuildResults(closedPoll("s1"), first)
	newer := domain.BuildResults(closedPoll("s1"), first.Add(time.Hour))
	newer.Question = "Second round?"

	require.NoError(t, archive.Save(ctx, newer))
	require.NoError(t, archive.Save(ctx, older))

	got, err := archive.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Second round?", got.Question)
}

func TestResultsArchive_AnonymousKeepsNoVoters(t *testing.T) {
	archive := NewResultsArchive(setupTestDB(t), nil)
	ctx := context.Background()

	p := closedPoll("anon")
	p.Anonymous = true
	require.NoError(t, archive.Save(ctx, domain.BuildResults(p, time.Now().UTC())))

	got, err := archive.Latest(ctx, "anon")
	require.NoError(t, err)
	assert.True(t, got.Anonymous)
	for _, r := range got.Responses {
		assert.Empty(t, r.Participants)
	}
}

func TestResultsArchive_LatestMissing(t *testing.T) {
	archive := NewResultsArchive(setupTestDB(t), nil)

	_, err := archive.Latest(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrResultsNotFound)
}

func TestMigrateArchive_Idempotent(t *testing.T) {
	pool := setupTestDB(t)

	require.NoError(t, MigrateArchive(context.Background(), pool))
}

func TestMigrateArchive_ReleasesSchemaLock(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, MigrateArchive(ctx, pool))

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	var locked bool
	require.NoError(t, conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", archiveLockKey).Scan(&locked))
	assert.True(t, locked)
	_, err = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", archiveLockKey)
	require.NoError(t, err)

	var version int32
	require.NoError(t, pool.QueryRow(ctx, "SELECT version FROM "+versionTable).Scan(&version))
	assert.Equal(t, int32(1), version)
}
