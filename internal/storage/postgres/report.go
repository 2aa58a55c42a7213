package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bizintel/internal/domain"
)

var ErrNotFound = errors.New("not found")

// ReportStore persists compiled reports as JSON documents together with the
// news history they contain.
type ReportStore struct {
	db      *sqlx.DB
	tx      *TransactionManager
	history *HistoryStore
}

func NewReportStore(db *sqlx.DB, tx *TransactionManager, history *HistoryStore) *ReportStore {
	return &ReportStore{db: db, tx: tx, history: history}
}

func (s *ReportStore) Save(ctx context.Context, report *domain.Report) (int64, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}

	var id int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO reports (persona, topic, generated_at, payload)
			VALUES ($1, $2, $3, $4)
			RETURNING id`

		err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
			report.Persona,
			report.Topic,
			report.GeneratedAt,
			payload,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		return s.history.InsertBatch(ctx, id, reportArticles(report))
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *ReportStore) Latest(ctx context.Context, persona string) (*domain.Report, error) {
	query := `
		SELECT id, payload
		FROM reports
		WHERE persona = $1
		ORDER BY generated_at DESC, id DESC
		LIMIT 1`

	var row struct {
		ID      int64  `db:"id"`
		Payload []byte `db:"payload"`
	}
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, persona)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select latest report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(row.Payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report %d: %w", row.ID, err)
	}
	report.ID = row.ID

	return &report, nil
}

func reportArticles(report *domain.Report) []domain.Article {
	articles := make([]domain.Article, 0, len(report.MarketNews)+len(report.FundingUpdates))
	for _, a := range report.MarketNews {
		articles = append(articles, a.Article)
	}
	return append(articles, report.FundingUpdates...)
}
