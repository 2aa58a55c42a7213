package domain

import "time"

// Personas a dashboard can be built for.
const (
	PersonaFounder    = "founder"
	PersonaAnalyst    = "analyst"
	PersonaResearcher = "researcher"
)

func IsPersona(p string) bool {
	switch p {
	case PersonaFounder, PersonaAnalyst, PersonaResearcher:
		return true
	}
	return false
}

type Quote struct {
	Symbol        string  `json:"symbol"`
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
}

type TrendAlert struct {
	Symbol        string  `json:"symbol"`
	PercentChange float64 `json:"percent_change"`
	Direction     string  `json:"direction"` // "up" or "down"
}

type CompanyProfile struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Industry  string  `json:"industry"`
	Country   string  `json:"country"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"market_cap"`
	WebURL    string  `json:"web_url"`
}

type Insight struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Report is the compiled output of one persona dashboard run.
type Report struct {
	ID          int64     `json:"id"`
	Persona     string    `json:"persona"`
	Topic       string    `json:"topic"`
	GeneratedAt time.Time `json:"generated_at"`

	MarketNews     []SummarizedArticle `json:"market_news,omitempty"`
	FundingUpdates []Article           `json:"funding_updates,omitempty"`

	Quotes      []Quote      `json:"quotes,omitempty"`
	TrendAlerts []TrendAlert `json:"trend_alerts,omitempty"`
	Insights    []Insight    `json:"insights,omitempty"`

	Company     *CompanyProfile `json:"company,omitempty"`
	Peers       []Quote         `json:"peers,omitempty"`
	PeerInsight string          `json:"peer_insight,omitempty"`
	DeepDive    string          `json:"deep_dive,omitempty"`
}
