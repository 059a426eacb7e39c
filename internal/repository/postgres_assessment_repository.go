package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// assessmentRow is the database shape of an assessment. The verdict
// columns are duplicated out of the jsonb result for filtering.
type assessmentRow struct {
	bun.BaseModel `bun:"table:assessments,alias:a"`

	ID                string                   `bun:"id,pk"`
	Source            string                   `bun:"source,notnull"`
	CreatedAt         time.Time                `bun:"created_at,notnull"`
	ProcessingTimeSec float64                  `bun:"processing_time_sec,notnull"`
	OverallScore      float64                  `bun:"overall_score,notnull"`
	AlternatePath     bool                     `bun:"alternate_path,notnull"`
	Image             models.ImageMetadata     `bun:"image,type:jsonb"`
	Result            models.QualityResult     `bun:"result,type:jsonb"`
	Extraction        *models.ExtractionResult `bun:"extraction,type:jsonb"`
}

var assessmentUpdateColumns = []string{
	"source", "created_at", "processing_time_sec", "overall_score",
	"alternate_path", "image", "result", "extraction",
}

func toRow(a *models.Assessment) *assessmentRow {
	return &assessmentRow{
		ID:                a.ID,
		Source:            a.Source,
		CreatedAt:         a.CreatedAt.UTC(),
		ProcessingTimeSec: a.ProcessingTimeSec,
		OverallScore:      a.Result.OverallScore,
		AlternatePath:     a.Result.ShouldUseAlternatePath,
		Image:             a.Image,
		Result:            a.Result,
		Extraction:        a.Extraction,
	}
}

func (r *assessmentRow) toModel() *models.Assessment {
	return &models.Assessment{
		ID:                r.ID,
		Source:            r.Source,
		CreatedAt:         r.CreatedAt,
		ProcessingTimeSec: r.ProcessingTimeSec,
		Image:             r.Image,
		Result:            r.Result,
		Extraction:        r.Extraction,
	}
}

// PostgresAssessmentRepository stores assessments in PostgreSQL
type PostgresAssessmentRepository struct {
	db *bun.DB
}

// NewPostgresAssessmentRepository connects to dsn and creates the schema if needed
func NewPostgresAssessmentRepository(ctx context.Context, dsn string) (*PostgresAssessmentRepository, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	repo := &PostgresAssessmentRepository{db: db}
	if err := repo.InitializeDatabase(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return repo, nil
}

// InitializeDatabase creates the assessments table and its indexes
func (r *PostgresAssessmentRepository) InitializeDatabase(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*assessmentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create assessments table: %w", err)
	}

	_, err = r.db.NewCreateIndex().
		Model((*assessmentRow)(nil)).
		Index("idx_assessments_created_at").
		Column("created_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	_, err = r.db.NewCreateIndex().
		Model((*assessmentRow)(nil)).
		Index("idx_assessments_source").
		Column("source", "created_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create source index: %w", err)
	}

	return nil
}

// SaveAssessment upserts an assessment by id
func (r *PostgresAssessmentRepository) SaveAssessment(ctx context.Context, a *models.Assessment) error {
	if a == nil || a.ID == "" {
		return ErrInvalidAssessment
	}

	query := r.db.NewInsert().
		Model(toRow(a)).
		On("CONFLICT (id) DO UPDATE")
	for _, col := range assessmentUpdateColumns {
		query = query.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}

	if _, err := query.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// GetAssessment loads one assessment by id
func (r *PostgresAssessmentRepository) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	var row assessmentRow

	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return row.toModel(), nil
}

// ListAssessments returns the newest assessments first
func (r *PostgresAssessmentRepository) ListAssessments(ctx context.Context, source string, limit int) ([]*models.Assessment, error) {
	var rows []assessmentRow

	query := r.db.NewSelect().
		Model(&rows).
		Order("created_at DESC", "id DESC")
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	out := make([]*models.Assessment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// Close closes the connection pool
func (r *PostgresAssessmentRepository) Close() error {
	return r.db.Close()
}
