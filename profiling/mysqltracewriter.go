package profiling

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	// Need to use MySQL connections.
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// MySQLTraceWriter is an observer that stores completed records in a MySQL
// database.
type MySQLTraceWriter struct {
	username  string
	password  string
	ipAddress string
	port      int
	dbName    string
	db        *sql.DB

	mu             sync.Mutex
	recordsToWrite []TaskRecord
	batchSize      int
}

// NewMySQLTraceWriter creates a new MySQLTraceWriter.
func NewMySQLTraceWriter() *MySQLTraceWriter {
	w := &MySQLTraceWriter{
		batchSize: 1000,
	}

	return w
}

// Init establishes a connection to MySQL and creates a database.
func (w *MySQLTraceWriter) Init() {
	w.getCredentials()
	w.connect()
	w.createDatabase()

	atexit.Register(func() {
		w.Flush()
	})
}

func (w *MySQLTraceWriter) getCredentials() {
	w.username = os.Getenv("BENCHTOOLS_TRACE_USERNAME")
	if w.username == "" {
		panic(`trace username is not set, use environment variable ` +
			`BENCHTOOLS_TRACE_USERNAME to set it.`)
	}

	w.password = os.Getenv("BENCHTOOLS_TRACE_PASSWORD")
	w.ipAddress = os.Getenv("BENCHTOOLS_TRACE_IP")
	if w.ipAddress == "" {
		w.ipAddress = "127.0.0.1"
	}

	portString := os.Getenv("BENCHTOOLS_TRACE_PORT")
	if portString == "" {
		portString = "3306"
	}
	port, err := strconv.Atoi(portString)
	if err != nil {
		panic(err)
	}
	w.port = port
}

func (w *MySQLTraceWriter) connect() {
	connectStr := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		w.username, w.password, w.ipAddress, w.port)
	db, err := sql.Open("mysql", connectStr)
	if err != nil {
		panic(err)
	}

	w.db = db
}

func (w *MySQLTraceWriter) createDatabase() {
	dbName := "benchtools_trace_" + xid.New().String()
	w.dbName = dbName
	log.Printf("Trace is collected in database: %s\n", dbName)

	w.mustExecute("CREATE DATABASE " + dbName)
	w.mustExecute("USE " + dbName)

	w.createTable()
}

func (w *MySQLTraceWriter) createTable() {
	w.mustExecute(`
		create table trace
		(
			name       varchar(200) not null,
			scope      varchar(200) not null,
			kind       varchar(100) null,
			start_time bigint       null,
			end_time   bigint       null,
			runtime    bigint       null,
			status     varchar(100) null,
			hash       varchar(200) null,
			tx         varchar(200) null
		);
	`)

	w.mustExecute(`
		create index trace_name_index
			on trace (name);
	`)

	w.mustExecute(`
		create index trace_kind_index
			on trace (kind);
	`)

	w.mustExecute(`
		create index trace_start_time_index
			on trace (start_time) USING BTREE;
	`)

	w.mustExecute(`
		create index trace_end_time_index
			on trace (end_time) USING BTREE;
	`)
}

func (w *MySQLTraceWriter) mustExecute(query string) sql.Result {
	res, err := w.db.Exec(query)
	if err != nil {
		panic(err)
	}
	return res
}

// TaskFinished buffers a completed record for writing.
func (w *MySQLTraceWriter) TaskFinished(rec TaskRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recordsToWrite = append(w.recordsToWrite, rec)
	if len(w.recordsToWrite) > w.batchSize {
		w.flushToDB()
	}
}

// Flush writes all buffered records to the database.
func (w *MySQLTraceWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.flushToDB()
}

func (w *MySQLTraceWriter) flushToDB() {
	if len(w.recordsToWrite) == 0 {
		return
	}

	sqlStr := `INSERT INTO trace VALUES`
	vals := []any{}

	for i := range w.recordsToWrite {
		sqlStr += "(?, ?, ?, ?, ?, ?, ?, ?, ?),"
		vals = append(vals,
			w.recordsToWrite[i].Name,
			w.recordsToWrite[i].Scope,
			string(w.recordsToWrite[i].Kind),
			int64(w.recordsToWrite[i].StartTime),
			int64(w.recordsToWrite[i].EndTime),
			int64(w.recordsToWrite[i].Runtime),
			w.recordsToWrite[i].Status,
			w.recordsToWrite[i].Hash,
			w.recordsToWrite[i].Tx,
		)
	}

	sqlStr = strings.TrimSuffix(sqlStr, ",")

	stmt, err := w.db.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(vals...)
	if err != nil {
		panic(err)
	}

	w.recordsToWrite = nil
}
