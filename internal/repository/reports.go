package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"surakshanet/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when no report has the requested id
var ErrNotFound = errors.New("report not found")

// Supported database types
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultListLimit caps listings that do not ask for a size
const DefaultListLimit = 100

// ReportRepository archives module reports
type ReportRepository struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// Open connects to the archive database and applies migrations.
// dsn is a file path for sqlite and a connection URL for postgres.
func Open(driver, dsn string, logger *zap.Logger) (*ReportRepository, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database type %q", driver)
	}

	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &ReportRepository{db: db, driver: driver, logger: logger}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Report archive initialized", zap.String("driver", driver))
	return repo, nil
}

func (r *ReportRepository) migrate() error {
	var (
		driver database.Driver
		err    error
	)
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db.DB, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(r.db.DB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("couldn't get database instance for migrations: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "surakshanet", driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	r.logger.Info("Database migration was run successfully")
	return nil
}

// Close closes the database
func (r *ReportRepository) Close() error {
	return r.db.Close()
}

// SaveReport stores one report record
func (r *ReportRepository) SaveReport(ctx context.Context, rec *models.ReportRecord) error {
	query := r.db.Rebind(`
		INSERT INTO reports (id, module, assessment, confidence, subject, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Module,
		rec.Assessment,
		rec.Confidence,
		rec.Subject,
		rec.Payload,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport returns the report with id
func (r *ReportRepository) GetReport(ctx context.Context, id string) (*models.ReportRecord, error) {
	var rec models.ReportRecord
	query := r.db.Rebind(`
		SELECT id, module, assessment, confidence, subject, payload, created_at
		FROM reports
		WHERE id = ?
	`)

	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &rec, nil
}

// ListReports returns reports newest first
func (r *ReportRepository) ListReports(ctx context.Context, limit, offset int) ([]*models.ReportRecord, error) {
	query := r.db.Rebind(`
		SELECT id, module, assessment, confidence, subject, payload, created_at
		FROM reports
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)
	return r.list(ctx, query, normalizeLimit(limit), max(offset, 0))
}

// ListReportsByModule returns one module's reports newest first
func (r *ReportRepository) ListReportsByModule(ctx context.Context, module string, limit int) ([]*models.ReportRecord, error) {
	query := r.db.Rebind(`
		SELECT id, module, assessment, confidence, subject, payload, created_at
		FROM reports
		WHERE module = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	return r.list(ctx, query, module, normalizeLimit(limit))
}

// AllReports returns every report oldest first, for export
func (r *ReportRepository) AllReports(ctx context.Context) ([]*models.ReportRecord, error) {
	return r.list(ctx, `
		SELECT id, module, assessment, confidence, subject, payload, created_at
		FROM reports
		ORDER BY created_at ASC, id ASC
	`)
}

func (r *ReportRepository) list(ctx context.Context, query string, args ...any) ([]*models.ReportRecord, error) {
	reports := []*models.ReportRecord{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

type countRow struct {
	Name  string `db:"name"`
	Total int    `db:"total"`
}

// Stats counts reports in total, per module and per assessment
func (r *ReportRepository) Stats(ctx context.Context) (*models.ReportStats, error) {
	stats := &models.ReportStats{
		ByModule:     make(map[string]int),
		ByAssessment: make(map[string]int),
	}

	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM reports`); err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"module", stats.ByModule},
		{"assessment", stats.ByAssessment},
	}
	for _, g := range groups {
		var rows []countRow
		query := fmt.Sprintf(`SELECT %s AS name, COUNT(*) AS total FROM reports GROUP BY %s`, g.column, g.column)
		if err := r.db.SelectContext(ctx, &rows, query); err != nil {
			return nil, fmt.Errorf("failed to group reports by %s: %w", g.column, err)
		}
		for _, row := range rows {
			g.into[row.Name] = row.Total
		}
	}

	return stats, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultListLimit
	}
	return limit
}
