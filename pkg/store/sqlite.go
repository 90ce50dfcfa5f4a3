package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/promptpool/fpo/pkg/core"
	"github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/logging"
)

// SQLiteStore persists the registry in a SQLite database. Every save runs in
// one transaction that replaces the whole registry, which gives the same
// all-or-nothing commit behavior as the file store.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string

	initialized sync.Once
}

// NewSQLiteStore opens (or creates) a registry database at the given path.
// Use ":memory:" for an ephemeral registry.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StoreFailed, "failed to open registry database"),
			errors.Fields{"path": path})
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.ensureInitialized(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL keeps readers live while a save transaction is in flight
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.StoreFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS registry (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            version TEXT NOT NULL,
            global_prompt TEXT NOT NULL,
            domains TEXT NOT NULL
        );

        CREATE TABLE IF NOT EXISTS templates (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            template TEXT NOT NULL,
            weight REAL NOT NULL,
            generation INTEGER NOT NULL,
            parents TEXT,
            created_at TEXT NOT NULL,
            performance TEXT NOT NULL
        );
        `
		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.StoreFailed, "failed to initialize registry schema")
			return
		}
	})
	return initErr
}

// Load reads and validates the committed registry.
func (s *SQLiteStore) Load(ctx context.Context) (*core.Population, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &registryDocument{}
	var domainsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT version, global_prompt, domains FROM registry WHERE id = 1").
		Scan(&doc.Version, &doc.GlobalPrompt, &domainsJSON)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no registry committed yet"),
			errors.Fields{"path": s.path})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "failed to read registry row")
	}
	if err := json.Unmarshal([]byte(domainsJSON), &doc.Domains); err != nil {
		return nil, errors.Wrap(err, errors.StoreCorrupt, "registry domains column is not valid json")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, template, weight, generation, parents, created_at, performance FROM templates ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "failed to read template rows")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c               core.PromptCandidate
			parentsJSON     sql.NullString
			createdAt       string
			performanceJSON string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Template, &c.Weight, &c.Generation,
			&parentsJSON, &createdAt, &performanceJSON); err != nil {
			return nil, errors.Wrap(err, errors.StoreFailed, "failed to scan template row")
		}

		if parentsJSON.Valid && parentsJSON.String != "" {
			if err := json.Unmarshal([]byte(parentsJSON.String), &c.Parents); err != nil {
				return nil, errors.WithFields(
					errors.Wrap(err, errors.StoreCorrupt, "template parents column is not valid json"),
					errors.Fields{"id": c.ID})
			}
		}
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.StoreCorrupt, "template created_at column is not a valid timestamp"),
				errors.Fields{"id": c.ID})
		}
		c.CreatedAt = created
		if err := json.Unmarshal([]byte(performanceJSON), &c.Performance); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.StoreCorrupt, "template performance column is not valid json"),
				errors.Fields{"id": c.ID})
		}

		doc.Templates = append(doc.Templates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StoreFailed, "error iterating template rows")
	}

	return decodeRegistry(doc)
}

// Save replaces the committed registry inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, pop *core.Population) error {
	if pop == nil {
		return errors.New(errors.InvalidInput, "cannot save a nil population")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := encodeRegistry(pop)
	domainsJSON, err := json.Marshal(doc.Domains)
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to marshal registry domains")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to begin registry transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(ctx, "failed to rollback registry transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM templates"); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to clear template rows")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM registry"); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to clear registry row")
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO registry (id, version, global_prompt, domains) VALUES (1, ?, ?, ?)",
		doc.Version, doc.GlobalPrompt, string(domainsJSON)); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to write registry row")
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO templates (id, name, template, weight, generation, parents, created_at, performance) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to prepare template insert")
	}
	defer stmt.Close()

	for _, c := range doc.Templates {
		var parentsJSON interface{}
		if len(c.Parents) > 0 {
			data, err := json.Marshal(c.Parents)
			if err != nil {
				return errors.Wrap(err, errors.StoreFailed, "failed to marshal template parents")
			}
			parentsJSON = string(data)
		}
		performanceJSON, err := json.Marshal(c.Performance)
		if err != nil {
			return errors.Wrap(err, errors.StoreFailed, "failed to marshal template performance")
		}

		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Template, c.Weight, c.Generation,
			parentsJSON, c.CreatedAt.UTC().Format(time.RFC3339Nano), string(performanceJSON)); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.StoreFailed, "failed to write template row"),
				errors.Fields{"id": c.ID})
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to commit registry transaction")
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.StoreFailed, "failed to close registry database")
	}
	return nil
}
