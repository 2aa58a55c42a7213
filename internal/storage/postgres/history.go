package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bizintel/internal/domain"
)

const historyColumns = 6

type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// InsertBatch stores articles as history rows of reportID with one
// multi-row insert.
func (s *HistoryStore) InsertBatch(ctx context.Context, reportID int64, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO news_history (report_id, title, description, source, url, published_at) VALUES ")
	args := make([]any, 0, len(articles)*historyColumns)

	for i, a := range articles {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for col := 1; col <= historyColumns; col++ {
			if col > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*historyColumns + col))
		}
		sb.WriteString(")")

		source := a.Source
		if source == "" {
			source = domain.SourceUnknown
		}
		args = append(args, reportID, a.Title, a.Description, source, a.URL, a.PublishedAt)
	}

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert news history: %w", err)
	}
	return nil
}

// Recent returns the newest history rows, optionally restricted to sources.
func (s *HistoryStore) Recent(ctx context.Context, sources []string, limit int) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, report_id, title, description, source, url, published_at, saved_at
		FROM news_history
		WHERE cardinality($1::text[]) = 0 OR source = ANY($1)
		ORDER BY saved_at DESC, id DESC
		LIMIT $2`

	if sources == nil {
		sources = []string{}
	}

	entries := []domain.HistoryEntry{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query, pq.Array(sources), limit); err != nil {
		return nil, fmt.Errorf("select news history: %w", err)
	}
	return entries, nil
}

func (s *HistoryStore) ByReport(ctx context.Context, reportID int64) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, report_id, title, description, source, url, published_at, saved_at
		FROM news_history
		WHERE report_id = $1
		ORDER BY id`

	entries := []domain.HistoryEntry{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query, reportID); err != nil {
		return nil, fmt.Errorf("select report history: %w", err)
	}
	return entries, nil
}
