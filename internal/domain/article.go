package domain

import "time"

// Article is a normalized news record produced by a source fetcher.
// Empty strings stand for absent fields.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"` // provider-native, not guaranteed parseable
}

// Provider names.
const (
	SourceNewsAPI    = "NewsAPI"
	SourceCNBC       = "CNBC"
	SourceReuters    = "Reuters"
	SourceTechCrunch = "TechCrunch"
	SourceFinnhub    = "Finnhub"

	SourceUnknown = "Unknown"
)

type SummarizedArticle struct {
	Article
	Summary string `json:"summary"`
}

// HistoryEntry is an article stored alongside the report that included it.
type HistoryEntry struct {
	ID          int64     `db:"id" json:"id"`
	ReportID    int64     `db:"report_id" json:"report_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Source      string    `db:"source" json:"source"`
	URL         string    `db:"url" json:"url"`
	PublishedAt string    `db:"published_at" json:"published_at"`
	SavedAt     time.Time `db:"saved_at" json:"saved_at"`
}
