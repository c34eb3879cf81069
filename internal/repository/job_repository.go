package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carousel-server/internal/models"
	"carousel-server/pkg/database"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	// tryStartJobQuery одна инструкция вместо проверки и записи: при status = running строка не меняется,
	// если только задача не молчит дольше $5 секунд (процесс упал посреди прогона).
	tryStartJobQuery = `
        INSERT INTO generation_jobs (document_id, job_id, status, stage, error, raw_output, progress, title, started_at, finished_at, updated_at)
        VALUES ($1, $2, 'running', $3, NULL, '', $4, '', NOW(), NULL, NOW())
        ON CONFLICT (document_id) DO UPDATE SET
            job_id = EXCLUDED.job_id,
            status = 'running',
            stage = EXCLUDED.stage,
            error = NULL,
            raw_output = '',
            progress = EXCLUDED.progress,
            title = '',
            started_at = NOW(),
            finished_at = NULL,
            updated_at = NOW()
        WHERE generation_jobs.status <> 'running'
           OR ($5::double precision > 0 AND generation_jobs.updated_at < NOW() - $5::double precision * INTERVAL '1 second')`
	getJobQuery = `
        SELECT document_id, job_id, status, stage, error, raw_output, progress, title, started_at, finished_at, updated_at
        FROM generation_jobs WHERE document_id = $1`
	updateJobProgressQuery = `
        UPDATE generation_jobs
        SET progress = $3, stage = $4, updated_at = NOW()
        WHERE document_id = $1 AND job_id = $2 AND status = 'running'`
	finishJobQuery = `
        UPDATE generation_jobs
        SET status = $3, stage = $4, progress = $5, error = $6, raw_output = $7, title = $8,
            finished_at = NOW(), updated_at = NOW()
        WHERE document_id = $1 AND job_id = $2`
)

var _ JobRepository = (*pgJobRepository)(nil)

type pgJobRepository struct {
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewPgJobRepository staleAfter срок, после которого зависшую в running задачу можно перезапустить. 0 отключает перехват.
func NewPgJobRepository(staleAfter time.Duration, logger *zap.Logger) JobRepository {
	return &pgJobRepository{staleAfter: staleAfter, logger: logger.Named("PgJobRepo")}
}

type jobRow struct {
	DocumentID uuid.UUID  `db:"document_id"`
	JobID      uuid.UUID  `db:"job_id"`
	Status     string     `db:"status"`
	Stage      string     `db:"stage"`
	Error      *string    `db:"error"`
	RawOutput  string     `db:"raw_output"`
	Progress   []byte     `db:"progress"`
	Title      string     `db:"title"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r *pgJobRepository) TryStart(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error {
	log := r.logger.With(zap.String("document_id", documentID.String()), zap.String("job_id", jobID.String()))
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tag, err := querier.Exec(ctx, tryStartJobQuery, documentID, jobID, string(progress.Stage), payload, r.staleAfter.Seconds())
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("document %s: %w", documentID, models.ErrNotFound)
		}
		log.Error("Failed to start generation job", zap.Error(err))
		return fmt.Errorf("failed to start generation job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warn("Generation already running, start rejected")
		return models.ErrGenerationInProgress
	}
	log.Info("Generation job started")
	return nil
}

func (r *pgJobRepository) Get(ctx context.Context, querier database.DBTX, documentID uuid.UUID) (*models.JobState, error) {
	var row jobRow
	if err := pgxscan.Get(ctx, querier, &row, getJobQuery, documentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("generation job for %s: %w", documentID, models.ErrNotFound)
		}
		r.logger.Error("Failed to get generation job", zap.String("document_id", documentID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get generation job: %w", err)
	}

	state := &models.JobState{
		DocumentID: row.DocumentID,
		JobID:      row.JobID,
		Status:     models.JobStatus(row.Status),
		Error:      row.Error,
		RawOutput:  row.RawOutput,
		Title:      row.Title,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		UpdatedAt:  row.UpdatedAt,
		Progress:   models.NewProgress(),
	}
	if len(row.Progress) > 0 {
		if err := json.Unmarshal(row.Progress, &state.Progress); err != nil {
			return nil, fmt.Errorf("decode progress of %s: %w", documentID, err)
		}
	}
	if state.Progress.Stage == "" {
		state.Progress.Stage = models.JobStage(row.Stage)
	}
	if state.Progress.Trace == nil {
		state.Progress.Trace = []models.TraceEntry{}
	}
	return state, nil
}

func (r *pgJobRepository) UpdateProgress(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, progress models.Progress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tag, err := querier.Exec(ctx, updateJobProgressQuery, documentID, jobID, payload, string(progress.Stage))
	if err != nil {
		r.logger.Error("Failed to update progress", zap.String("document_id", documentID.String()), zap.Error(err))
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("running job %s: %w", jobID, models.ErrNotFound)
	}
	return nil
}

func (r *pgJobRepository) Finish(ctx context.Context, querier database.DBTX, documentID, jobID uuid.UUID, result JobResult) error {
	payload, err := json.Marshal(result.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tag, err := querier.Exec(ctx, finishJobQuery, documentID, jobID, string(result.Status), string(result.Progress.Stage),
		payload, result.Error, result.RawOutput, result.Title)
	if err != nil {
		r.logger.Error("Failed to finish generation job", zap.String("document_id", documentID.String()), zap.Error(err))
		return fmt.Errorf("failed to finish generation job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	return nil
}
