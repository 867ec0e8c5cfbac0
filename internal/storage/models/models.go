package models

import "time"

// Publication is the canonical record for one NASA bioscience paper.
// Records are created once by bulk load and read-only afterwards.
type Publication struct {
	ID        string
	Title     string
	Abstract  string
	Authors   string
	Summary   string
	URL       string
	CreatedAt time.Time
}

// QueryRecord is one row of question-answering history.
type QueryRecord struct {
	ID          string
	Question    string
	Role        string
	Answer      string
	ModelUsed   string
	SourceCount int
	LatencyMS   int
	Failed      bool
	CreatedAt   time.Time
}

// EmbedRun is the persisted report of one bulk embedding run.
type EmbedRun struct {
	ID           string
	SuccessCount int
	ErrorCount   int
	Total        int
	StartedAt    time.Time
	FinishedAt   time.Time
}
