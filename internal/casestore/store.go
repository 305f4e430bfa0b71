// Package casestore loads the read-only case snapshot the pipeline analyses.
// The pipeline never writes back; case data is owned by the upload and intake
// services.
package casestore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// ocrPreviewLimit caps how much extracted document text is carried into
// prompts per evidence item.
const ocrPreviewLimit = 300

// Store reads case and evidence rows from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a case store over an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgx pool against the given database URL, retrying briefly
// so the service survives a database that comes up after it does.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				return pool, nil
			} else {
				err = pingErr
				pool.Close()
			}
		}
		log.Printf("WARN: database connection attempt %d/5 failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to database: %w", err)
}

// Snapshot loads the case description, its evidence summaries, and the most
// recent stored analysis for the given case.
func (s *Store) Snapshot(ctx context.Context, caseID string) (pipeline.CaseContext, error) {
	cc := pipeline.CaseContext{CaseID: caseID}

	row := s.pool.QueryRow(ctx,
		`SELECT description, case_type, jurisdiction FROM cases WHERE id = $1`, caseID)
	if err := row.Scan(&cc.Description, &cc.CaseType, &cc.Jurisdiction); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cc, fmt.Errorf("case %s not found", caseID)
		}
		return cc, fmt.Errorf("failed to load case: %w", err)
	}

	evidence, err := s.loadEvidence(ctx, caseID)
	if err != nil {
		return cc, err
	}
	cc.Evidence = evidence

	prior, err := s.loadPriorAnalysis(ctx, caseID)
	if err != nil {
		return cc, err
	}
	cc.PriorAnalysis = prior

	return cc, nil
}

func (s *Store) loadEvidence(ctx context.Context, caseID string) ([]pipeline.EvidenceSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT file_name, file_type, COALESCE(description, ''), COALESCE(tags, '{}'), COALESCE(ocr_text, '')
		 FROM evidence WHERE case_id = $1 ORDER BY uploaded_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence: %w", err)
	}
	defer rows.Close()

	var out []pipeline.EvidenceSummary
	for rows.Next() {
		var ev pipeline.EvidenceSummary
		var ocrText string
		if err := rows.Scan(&ev.Name, &ev.Type, &ev.Description, &ev.Tags, &ocrText); err != nil {
			return nil, fmt.Errorf("failed to scan evidence row: %w", err)
		}
		ev.OCRPreview = truncate(ocrText, ocrPreviewLimit)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read evidence rows: %w", err)
	}
	return out, nil
}

func (s *Store) loadPriorAnalysis(ctx context.Context, caseID string) (string, error) {
	var summary string
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(summary, '') FROM evidence_analysis
		 WHERE case_id = $1 ORDER BY created_at DESC LIMIT 1`, caseID)
	if err := row.Scan(&summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load prior analysis: %w", err)
	}
	return summary, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
