// Package datarecording stores flat Go structs into SQLite tables and reads
// them back. The showcase host uses it to keep a journal of transitions.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrFileExists is returned when a recording would overwrite an existing
// database file.
var ErrFileExists = errors.New("datarecording: file already exists")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables created by this recorder.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// Option configures a DataRecorder.
type Option func(w *sqliteWriter)

// WithLogger sets where flush failures and dropped entries are reported.
func WithLogger(logger *log.Logger) Option {
	return func(w *sqliteWriter) {
		w.logger = logger
	}
}

// New creates a DataRecorder writing to path + ".sqlite3". An empty path
// picks a unique name. Buffered entries are flushed when the process exits
// through atexit.
func New(path string, opts ...Option) (DataRecorder, error) {
	if path == "" {
		path = "showcase_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("datarecording: opening %s: %w", filename, err)
	}

	w := NewWithDB(db, opts...).(*sqliteWriter)
	w.dbName = filename

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB, opts ...Option) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		logger:    log.Default(),
		batchSize: 10000,
		tables:    make(map[string]*table),
	}

	for _, opt := range opts {
		opt(w)
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	mu         sync.Mutex
	logger     *log.Logger
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types.Kind() != reflect.Struct {
		return fmt.Errorf("datarecording: entry must be a struct, got %s", types)
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("datarecording: field %s has unsupported type %s",
				field.Name, field.Type)
		}
	}

	return nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("datarecording: table %s already exists", tableName)
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: creating table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		entries:    []any{},
	}

	return nil
}

// InsertData panics if the table was never created or the entry does not
// match the table's struct type. Entries inserted after Close are dropped.
func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		t.logger.Warn("dropping entry for closed recording",
			"table", tableName, "db", t.dbName)

		return
	}

	table, exists := t.tables[tableName]
	if !exists {
		t.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		t.mu.Unlock()
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)
	t.entryCount++
	full := t.entryCount >= t.batchSize
	t.mu.Unlock()

	if full {
		if err := t.Flush(); err != nil {
			t.logger.Error("flushing recording", "db", t.dbName, "err", err)
		}
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

func (t *sqliteWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entryCount == 0 || t.closed {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("datarecording: begin: %w", err)
	}

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		if err := insertEntries(tx, tableName, table.entries); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datarecording: commit: %w", err)
	}

	for _, table := range t.tables {
		table.entries = nil
	}
	t.entryCount = 0

	return nil
}

func insertEntries(tx *sql.Tx, tableName string, entries []any) error {
	stmt, err := tx.Prepare(insertStatement(tableName, entries[0]))
	if err != nil {
		return fmt.Errorf("datarecording: preparing insert into %s: %w",
			tableName, err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("datarecording: inserting into %s: %w",
				tableName, err)
		}
	}

	return nil
}

func insertStatement(tableName string, sampleEntry any) string {
	n := structs.Names(sampleEntry)
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(n, ", ") + ")"
}

func (t *sqliteWriter) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	return t.DB.Close()
}
