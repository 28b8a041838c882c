// Package store persists batches of repetition results in SQLite.
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/market-sim/market-sim/sim"
)

// DB wraps a SQLite connection holding batch results.
type DB struct {
	conn *sqlx.DB
}

// Batch identifies one invocation of the runner.
type Batch struct {
	ID          string `db:"id"`
	Scenario    string `db:"scenario"`
	Seed        int64  `db:"seed"`
	Defence     string `db:"defence"`
	Repetitions int    `db:"repetitions"`
	Failures    int    `db:"failures"`
	CreatedAt   string `db:"created_at"` // RFC 3339, UTC
}

// ProviderRecord is one provider's final statistics in one repetition.
type ProviderRecord struct {
	BatchID           string  `db:"batch_id"`
	Repetition        int     `db:"repetition"`
	ProviderID        int     `db:"provider_id"`
	Behaviour         string  `db:"behaviour"`
	MinPrice          float64 `db:"min_price"`
	UsageFactor       float64 `db:"usage_factor"`
	Price             float64 `db:"price"`
	Revenue           float64 `db:"revenue"`
	SubtasksAssigned  int     `db:"subtasks_assigned"`
	SubtasksComputed  int     `db:"subtasks_computed"`
	SubtasksCancelled int     `db:"subtasks_cancelled"`
}

// RequestorRecord is one requestor's final statistics in one repetition.
type RequestorRecord struct {
	BatchID             string  `db:"batch_id"`
	Repetition          int     `db:"repetition"`
	RequestorID         int     `db:"requestor_id"`
	MaxPrice            float64 `db:"max_price"`
	BudgetFactor        float64 `db:"budget_factor"`
	TasksAdvertised     int     `db:"tasks_advertised"`
	TasksComputed       int     `db:"tasks_computed"`
	Readvertisements    int     `db:"readvertisements"`
	SubtasksAdvertised  int     `db:"subtasks_advertised"`
	SubtasksComputed    int     `db:"subtasks_computed"`
	SubtasksCancelled   int     `db:"subtasks_cancelled"`
	SubtasksOutstanding int     `db:"subtasks_outstanding"`
	MeanCost            float64 `db:"mean_cost"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		defence TEXT NOT NULL,
		repetitions INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS providers (
		batch_id TEXT NOT NULL REFERENCES batches(id),
		repetition INTEGER NOT NULL,
		provider_id INTEGER NOT NULL,
		behaviour TEXT NOT NULL,
		min_price REAL NOT NULL,
		usage_factor REAL NOT NULL,
		price REAL NOT NULL,
		revenue REAL NOT NULL,
		subtasks_assigned INTEGER NOT NULL,
		subtasks_computed INTEGER NOT NULL,
		subtasks_cancelled INTEGER NOT NULL,
		PRIMARY KEY (batch_id, repetition, provider_id)
	);

	CREATE TABLE IF NOT EXISTS requestors (
		batch_id TEXT NOT NULL REFERENCES batches(id),
		repetition INTEGER NOT NULL,
		requestor_id INTEGER NOT NULL,
		max_price REAL NOT NULL,
		budget_factor REAL NOT NULL,
		tasks_advertised INTEGER NOT NULL,
		tasks_computed INTEGER NOT NULL,
		readvertisements INTEGER NOT NULL,
		subtasks_advertised INTEGER NOT NULL,
		subtasks_computed INTEGER NOT NULL,
		subtasks_cancelled INTEGER NOT NULL,
		subtasks_outstanding INTEGER NOT NULL,
		mean_cost REAL NOT NULL,
		PRIMARY KEY (batch_id, repetition, requestor_id)
	);

	CREATE INDEX IF NOT EXISTS idx_providers_behaviour ON providers(batch_id, behaviour);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveBatch writes a batch and every snapshot in one transaction. An empty
// b.ID is replaced by a fresh UUID and an empty CreatedAt by the current
// time. Returns the stored batch.
func (db *DB) SaveBatch(b Batch, snapshots map[int]*sim.Snapshot) (Batch, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt == "" {
		b.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return b, err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExec(`INSERT INTO batches
		(id, scenario, seed, defence, repetitions, failures, created_at)
		VALUES (:id, :scenario, :seed, :defence, :repetitions, :failures, :created_at)`, b); err != nil {
		return b, fmt.Errorf("insert batch: %w", err)
	}

	provStmt, err := tx.PrepareNamed(`INSERT INTO providers
		(batch_id, repetition, provider_id, behaviour, min_price, usage_factor, price, revenue,
		 subtasks_assigned, subtasks_computed, subtasks_cancelled)
		VALUES (:batch_id, :repetition, :provider_id, :behaviour, :min_price, :usage_factor, :price, :revenue,
		 :subtasks_assigned, :subtasks_computed, :subtasks_cancelled)`)
	if err != nil {
		return b, err
	}
	defer provStmt.Close()

	reqStmt, err := tx.PrepareNamed(`INSERT INTO requestors
		(batch_id, repetition, requestor_id, max_price, budget_factor, tasks_advertised, tasks_computed,
		 readvertisements, subtasks_advertised, subtasks_computed, subtasks_cancelled, subtasks_outstanding, mean_cost)
		VALUES (:batch_id, :repetition, :requestor_id, :max_price, :budget_factor, :tasks_advertised, :tasks_computed,
		 :readvertisements, :subtasks_advertised, :subtasks_computed, :subtasks_cancelled, :subtasks_outstanding, :mean_cost)`)
	if err != nil {
		return b, err
	}
	defer reqStmt.Close()

	keys := make([]int, 0, len(snapshots))
	for k := range snapshots {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		snap := snapshots[k]
		for _, p := range snap.Providers {
			if _, err := provStmt.Exec(ProviderRecord{
				BatchID:           b.ID,
				Repetition:        k,
				ProviderID:        p.ID,
				Behaviour:         p.Behaviour,
				MinPrice:          p.MinPrice,
				UsageFactor:       p.UsageFactor,
				Price:             p.Price,
				Revenue:           p.Revenue,
				SubtasksAssigned:  p.SubtasksAssigned,
				SubtasksComputed:  p.SubtasksComputed,
				SubtasksCancelled: p.SubtasksCancelled,
			}); err != nil {
				return b, fmt.Errorf("insert provider %d of repetition %d: %w", p.ID, k, err)
			}
		}
		for _, r := range snap.Requestors {
			if _, err := reqStmt.Exec(RequestorRecord{
				BatchID:             b.ID,
				Repetition:          k,
				RequestorID:         r.ID,
				MaxPrice:            r.MaxPrice,
				BudgetFactor:        r.BudgetFactor,
				TasksAdvertised:     r.TasksAdvertised,
				TasksComputed:       r.TasksComputed,
				Readvertisements:    r.Readvertisements,
				SubtasksAdvertised:  r.SubtasksAdvertised,
				SubtasksComputed:    r.SubtasksComputed,
				SubtasksCancelled:   r.SubtasksCancelled,
				SubtasksOutstanding: r.SubtasksOutstanding,
				MeanCost:            r.MeanCost,
			}); err != nil {
				return b, fmt.Errorf("insert requestor %d of repetition %d: %w", r.ID, k, err)
			}
		}
	}

	return b, tx.Commit()
}

// Batches lists stored batches in insertion order.
func (db *DB) Batches() ([]Batch, error) {
	var out []Batch
	err := db.conn.Select(&out, `SELECT id, scenario, seed, defence, repetitions, failures, created_at
		FROM batches ORDER BY rowid`)
	return out, err
}

// Providers loads the provider records of a batch, ordered by repetition and id.
func (db *DB) Providers(batchID string) ([]ProviderRecord, error) {
	var out []ProviderRecord
	err := db.conn.Select(&out, `SELECT * FROM providers WHERE batch_id = ?
		ORDER BY repetition, provider_id`, batchID)
	return out, err
}

// Requestors loads the requestor records of a batch, ordered by repetition and id.
func (db *DB) Requestors(batchID string) ([]RequestorRecord, error) {
	var out []RequestorRecord
	err := db.conn.Select(&out, `SELECT * FROM requestors WHERE batch_id = ?
		ORDER BY repetition, requestor_id`, batchID)
	return out, err
}

// Snapshots rebuilds the per-repetition statistics of a batch, keyed by
// repetition. Seed, EndTime and EventsProcessed are not stored and stay zero.
func (db *DB) Snapshots(batchID string) (map[int]*sim.Snapshot, error) {
	providers, err := db.Providers(batchID)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	requestors, err := db.Requestors(batchID)
	if err != nil {
		return nil, fmt.Errorf("load requestors: %w", err)
	}
	out := make(map[int]*sim.Snapshot)
	get := func(k int) *sim.Snapshot {
		if out[k] == nil {
			out[k] = &sim.Snapshot{}
		}
		return out[k]
	}
	for _, p := range providers {
		snap := get(p.Repetition)
		snap.Providers = append(snap.Providers, sim.ProviderStats{
			ID:                p.ProviderID,
			Behaviour:         p.Behaviour,
			MinPrice:          p.MinPrice,
			UsageFactor:       p.UsageFactor,
			Price:             p.Price,
			Revenue:           p.Revenue,
			SubtasksAssigned:  p.SubtasksAssigned,
			SubtasksComputed:  p.SubtasksComputed,
			SubtasksCancelled: p.SubtasksCancelled,
		})
	}
	for _, r := range requestors {
		snap := get(r.Repetition)
		snap.Requestors = append(snap.Requestors, sim.RequestorStats{
			ID:                  r.RequestorID,
			MaxPrice:            r.MaxPrice,
			BudgetFactor:        r.BudgetFactor,
			TasksAdvertised:     r.TasksAdvertised,
			TasksComputed:       r.TasksComputed,
			Readvertisements:    r.Readvertisements,
			SubtasksAdvertised:  r.SubtasksAdvertised,
			SubtasksComputed:    r.SubtasksComputed,
			SubtasksCancelled:   r.SubtasksCancelled,
			SubtasksOutstanding: r.SubtasksOutstanding,
			MeanCost:            r.MeanCost,
		})
	}
	return out, nil
}
