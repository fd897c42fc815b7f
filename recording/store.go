// Package recording provides a reflection-driven SQLite store for profiling
// records.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Store is a backend that can record and persist flat structs.
type Store interface {
	// CreateTable creates a new table shaped like the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// Insert buffers a same-type entry into a table that already exists.
	Insert(tableName string, entry any)

	// ListTables returns a slice containing the names of all tables.
	ListTables() []string

	// Flush writes all buffered entries to the database.
	Flush()
}

// NewStore creates a SQLite-backed Store at the given path (without the
// .sqlite3 extension). An empty path generates a unique filename.
func NewStore(path string) Store {
	s := &sqliteStore{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	s.Init()

	atexit.Register(func() { s.Flush() })

	return s
}

// NewStoreWithDB creates a Store on an existing database connection.
func NewStoreWithDB(db *sql.DB) Store {
	s := &sqliteStore{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { s.Flush() })

	return s
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteStore writes entries into a SQLite database.
type sqliteStore struct {
	*sql.DB
	statement *sql.Stmt

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// Init establishes a connection to the database.
func (s *sqliteStore) Init() {
	if s.dbName == "" {
		s.dbName = "benchtools_recording_" + xid.New().String()
	}

	filename := s.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	s.DB = db
}

func (s *sqliteStore) isAllowedType(kind reflect.Kind) bool {
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

func (s *sqliteStore) checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		fieldKind := field.Type.Kind()
		if !s.isAllowedType(fieldKind) {
			return errors.New("entry is invalid")
		}
	}

	return nil
}

// CreateTable creates a table whose columns are the fields of the sample
// entry.
func (s *sqliteStore) CreateTable(tableName string, sampleEntry any) {
	err := s.checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	s.mustExecute(createTableSQL)

	tableInfo := &table{
		structType: reflect.TypeOf(sampleEntry),
		entries:    []any{},
	}
	s.tables[tableName] = tableInfo
}

// Insert buffers an entry for writing.
func (s *sqliteStore) Insert(tableName string, entry any) {
	table, exists := s.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	s.entryCount++
	if s.entryCount >= s.batchSize {
		s.Flush()
	}
}

// ListTables returns the names of all created tables.
func (s *sqliteStore) ListTables() []string {
	tables := make([]string, 0, len(s.tables))
	for table := range s.tables {
		tables = append(tables, table)
	}

	return tables
}

// Flush writes all buffered entries inside one transaction.
func (s *sqliteStore) Flush() {
	if s.entryCount == 0 {
		return
	}

	s.mustExecute("BEGIN TRANSACTION")
	defer s.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range s.tables {
		if len(table.entries) == 0 {
			continue
		}

		s.prepareStatement(tableName, table.entries[0])

		for _, entry := range table.entries {
			v := []any{}

			values := reflect.ValueOf(entry)
			for i := 0; i < values.NumField(); i++ {
				v = append(v, values.Field(i).Interface())
			}

			_, err := s.statement.Exec(v...)
			if err != nil {
				panic(err)
			}
		}

		table.entries = nil

		s.statement.Close()
		s.statement = nil
	}

	s.entryCount = 0
}

func (s *sqliteStore) mustExecute(query string) sql.Result {
	res, err := s.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (s *sqliteStore) prepareStatement(tableName string, entry any) {
	n := structs.Names(entry)
	for i := 0; i < len(n); i++ {
		n[i] = "?"
	}

	entryToFill := "(" + strings.Join(n, ", ") + ")"
	sqlStr := "INSERT INTO " + tableName + " VALUES " + entryToFill

	stmt, err := s.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	s.statement = stmt
}
