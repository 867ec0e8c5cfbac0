package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/spacebio/backend/internal/storage/models"
	"github.com/spacebio/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publications (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		authors TEXT,
		summary TEXT,
		url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_publications_title ON publications(title);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		role TEXT,
		answer TEXT,
		model_used TEXT,
		source_count INTEGER,
		latency_ms INTEGER,
		failed INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS embed_runs (
		id TEXT PRIMARY KEY,
		success_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		total INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertPublication(pub *models.Publication) error {
	query := `
		INSERT INTO publications (id, title, abstract, authors, summary, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		pub.ID,
		pub.Title,
		pub.Abstract,
		pub.Authors,
		pub.Summary,
		pub.URL,
		pub.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert publication: %w", err)
	}

	logger.Debug("Publication inserted", zap.String("pub_id", pub.ID), zap.String("title", pub.Title))
	return nil
}

func (c *Client) GetPublication(id string) (*models.Publication, error) {
	query := `SELECT id, title, abstract, authors, summary, url, created_at FROM publications WHERE id = ?`

	var pub models.Publication
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&pub.ID,
		&pub.Title,
		&pub.Abstract,
		&pub.Authors,
		&pub.Summary,
		&pub.URL,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}

	pub.CreatedAt = time.Unix(createdAt, 0)

	return &pub, nil
}

func (c *Client) GetAllPublications() ([]models.Publication, error) {
	query := `SELECT id, title, abstract, authors, summary, url, created_at FROM publications ORDER BY created_at`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get publications: %w", err)
	}
	defer rows.Close()

	var pubs []models.Publication
	for rows.Next() {
		var pub models.Publication
		var createdAt int64

		err := rows.Scan(&pub.ID, &pub.Title, &pub.Abstract, &pub.Authors, &pub.Summary, &pub.URL, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		pub.CreatedAt = time.Unix(createdAt, 0)
		pubs = append(pubs, pub)
	}

	return pubs, rows.Err()
}

func (c *Client) CountPublications() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM publications`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count publications: %w", err)
	}
	return count, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, question, role, answer, model_used, source_count, latency_ms, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	failed := 0
	if record.Failed {
		failed = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.Question,
		record.Role,
		record.Answer,
		record.ModelUsed,
		record.SourceCount,
		record.LatencyMS,
		failed,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("model", record.ModelUsed),
		zap.Int("sources", record.SourceCount),
	)

	return nil
}

func (c *Client) GetQueryHistory(limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, question, role, answer, model_used, source_count, latency_ms, failed, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var failed int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Question, &r.Role, &r.Answer, &r.ModelUsed, &r.SourceCount, &r.LatencyMS, &failed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Failed = failed != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) InsertEmbedRun(run *models.EmbedRun) error {
	query := `
		INSERT INTO embed_runs (id, success_count, error_count, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.SuccessCount,
		run.ErrorCount,
		run.Total,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert embed run: %w", err)
	}

	return nil
}
