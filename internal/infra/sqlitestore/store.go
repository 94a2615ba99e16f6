// Package sqlitestore implements domain.Store on SQLite.
//
// Each entity is stored as a JSON document next to the columns used for
// filtering. Writers use immediate transactions over a single connection, so
// concurrent Update calls are serialized and never interleave.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/sprintcrew/internal/domain"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store implements domain.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// New opens (creating if needed) the database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("sqlitestore: create data dir: %w", err)
	}

	db, err := openDB("sqlite", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlitestore: pragma %q: %w", p, err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Initialize creates the schema. It is safe to call repeatedly.
func (s *Store) Initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id      TEXT PRIMARY KEY,
			created TEXT NOT NULL,
			doc     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sprints (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			created    TEXT NOT NULL,
			doc        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);

		CREATE TABLE IF NOT EXISTS tasks (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			sprint_id  TEXT NOT NULL DEFAULT '',
			created    TEXT NOT NULL,
			doc        TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlitestore: migration: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// View runs fn in a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	return fn(&tx{ctx: ctx, tx: sqlTx})
}

// Update runs fn in a transaction and commits if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{ctx: ctx, tx: sqlTx, writable: true}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// tx implements domain.Tx over a *sql.Tx.
type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	return nil
}

func (t *tx) getDoc(table, id string, dest any) (bool, error) {
	var doc string
	err := t.tx.QueryRowContext(t.ctx, `SELECT doc FROM `+table+` WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s %s: %w", table, id, err)
	}
	if err := json.Unmarshal([]byte(doc), dest); err != nil {
		return false, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return true, nil
}

// queryDocs runs query and decodes every doc column with decode.
func (t *tx) queryDocs(query string, args []any, decode func([]byte) error) error {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := decode([]byte(doc)); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	}
	return rows.Err()
}

func (t *tx) exec(query string, args ...any) (int, error) {
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// === Projects ===

func (t *tx) GetProject(id string) (*domain.Project, error) {
	var p domain.Project
	ok, err := t.getDoc("projects", id, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (t *tx) ListProjects() ([]*domain.Project, error) {
	var projects []*domain.Project
	err := t.queryDocs(`SELECT doc FROM projects ORDER BY created, id`, nil, func(b []byte) error {
		var p domain.Project
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		projects = append(projects, &p)
		return nil
	})
	return projects, err
}

func (t *tx) SaveProject(p *domain.Project) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	_, err = t.exec(`
		INSERT INTO projects (id, created, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
		p.ID, p.Created.UTC().Format(timeLayout), string(doc))
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (t *tx) DeleteProject(id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, err := t.exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// === Sprints ===

func (t *tx) GetSprint(id string) (*domain.Sprint, error) {
	var s domain.Sprint
	ok, err := t.getDoc("sprints", id, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (t *tx) ListSprints(filter domain.SprintFilter) ([]*domain.Sprint, error) {
	query := `SELECT doc FROM sprints`
	var args []any
	if filter.ProjectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, filter.ProjectID)
	}
	query += ` ORDER BY created, id`

	var sprints []*domain.Sprint
	err := t.queryDocs(query, args, func(b []byte) error {
		var s domain.Sprint
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if filter.Matches(&s) {
			sprints = append(sprints, &s)
		}
		return nil
	})
	return sprints, err
}

func (t *tx) SaveSprint(s *domain.Sprint) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sprint: %w", err)
	}
	_, err = t.exec(`
		INSERT INTO sprints (id, project_id, created, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id, doc = excluded.doc`,
		s.ID, s.ProjectID, s.Created.UTC().Format(timeLayout), string(doc))
	if err != nil {
		return fmt.Errorf("save sprint: %w", err)
	}
	return nil
}

func (t *tx) DeleteSprint(id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, err := t.exec(`DELETE FROM sprints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sprint: %w", err)
	}
	return nil
}

func (t *tx) DeleteSprints(filter domain.SprintFilter) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	sprints, err := t.ListSprints(filter)
	if err != nil {
		return 0, err
	}
	for _, s := range sprints {
		if err := t.DeleteSprint(s.ID); err != nil {
			return 0, err
		}
	}
	return len(sprints), nil
}

// === Tasks ===

func (t *tx) GetTask(id string) (*domain.Task, error) {
	var task domain.Task
	ok, err := t.getDoc("tasks", id, &task)
	if err != nil || !ok {
		return nil, err
	}
	return &task, nil
}

func (t *tx) ListTasks(filter domain.TaskFilter) ([]*domain.Task, error) {
	var where []string
	var args []any
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.SprintID != "" {
		where = append(where, "sprint_id = ?")
		args = append(args, filter.SprintID)
	}
	query := `SELECT doc FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created, id`

	var tasks []*domain.Task
	err := t.queryDocs(query, args, func(b []byte) error {
		var task domain.Task
		if err := json.Unmarshal(b, &task); err != nil {
			return err
		}
		if filter.Matches(&task) {
			tasks = append(tasks, &task)
		}
		return nil
	})
	return tasks, err
}

func (t *tx) SaveTask(task *domain.Task) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	_, err = t.exec(`
		INSERT INTO tasks (id, project_id, sprint_id, created, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			sprint_id = excluded.sprint_id,
			doc = excluded.doc`,
		task.ID, task.ProjectID, task.SprintID, task.Created.UTC().Format(timeLayout), string(doc))
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (t *tx) DeleteTask(id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, err := t.exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (t *tx) UpdateTasks(filter domain.TaskFilter, patch func(*domain.Task)) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	tasks, err := t.ListTasks(filter)
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		patch(task)
		if err := t.SaveTask(task); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

func (t *tx) DeleteTasks(filter domain.TaskFilter) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	tasks, err := t.ListTasks(filter)
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		if err := t.DeleteTask(task.ID); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

// timeLayout sorts lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"
