package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surakshanet/internal/models"
)

func openTestRepo(t *testing.T) *ReportRepository {
	t.Helper()
	repo, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "archive.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(id, module, assessment string, at time.Time) *models.ReportRecord {
	return &models.ReportRecord{
		ID:         id,
		Module:     module,
		Assessment: assessment,
		Confidence: 0.5,
		Subject:    "subject " + id,
		Payload:    fmt.Sprintf(`{"id":%q}`, id),
		CreatedAt:  at,
	}
}

func TestSaveAndGetReport(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.SaveReport(ctx, record("r1", models.ModuleFraud, models.FraudHighRisk, at)))

	got, err := repo.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ModuleFraud, got.Module)
	assert.Equal(t, models.FraudHighRisk, got.Assessment)
	assert.Equal(t, `{"id":"r1"}`, got.Payload)
	assert.True(t, at.Equal(got.CreatedAt), "created_at round trip: %v", got.CreatedAt)

	_, err = repo.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReportRejectsDuplicateID(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	rec := record("dup", models.ModulePhishing, models.PhishingSafe, time.Now())

	require.NoError(t, repo.SaveReport(ctx, rec))
	assert.Error(t, repo.SaveReport(ctx, rec))
}

func TestListReportsNewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveReport(ctx, record("a", models.ModuleFraud, models.FraudLowRisk, base)))
	require.NoError(t, repo.SaveReport(ctx, record("b", models.ModuleDeepfake, models.DeepfakeLikely, base.Add(time.Hour))))
	require.NoError(t, repo.SaveReport(ctx, record("c", models.ModuleFraud, models.FraudHighRisk, base.Add(2*time.Hour))))

	all, err := repo.ListReports(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	page, err := repo.ListReports(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page))

	fraud, err := repo.ListReportsByModule(ctx, models.ModuleFraud, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(fraud))

	none, err := repo.ListReportsByModule(ctx, models.ModuleVoice, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	exported, err := repo.AllReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(exported))
}

func TestStats(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.SaveReport(ctx, record("1", models.ModuleFraud, models.FraudHighRisk, now)))
	require.NoError(t, repo.SaveReport(ctx, record("2", models.ModuleFraud, models.FraudLowRisk, now)))
	require.NoError(t, repo.SaveReport(ctx, record("3", models.ModuleVoice, models.VoiceLikelyScam, now)))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{models.ModuleFraud: 2, models.ModuleVoice: 1}, stats.ByModule)
	assert.Equal(t, 1, stats.ByAssessment[models.FraudHighRisk])
	assert.Equal(t, 1, stats.ByAssessment[models.VoiceLikelyScam])
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")

	first, err := Open(DriverSQLite, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.SaveReport(context.Background(), record("x", models.ModuleFraud, models.FraudUnknown, time.Now())))
	require.NoError(t, first.Close())

	second, err := Open(DriverSQLite, path, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()
	stats, err := second.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database type")
}

func ids(recs []*models.ReportRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
