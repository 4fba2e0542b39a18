package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeTables = []string{"programs", "instructions", "instruction_uses", "diagnostics", "runs"}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruler.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruler.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)

		version, err := s.schemaVersion()
		require.NoError(t, err)
		assert.Equal(t, currentSchemaVersion, version, "open %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	for _, table := range storeTables {
		assert.Contains(t, tableNames(t, s.db), table)
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	// Every query must see the schema, so the store may not hand out a
	// second connection to a fresh in-memory database.
	for i := 0; i < 3; i++ {
		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
		assert.Zero(t, count)
	}
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/ruler.db")
	assert.Error(t, err)
}

func TestCloseZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestPragmasInEffect(t *testing.T) {
	s := createTestStore(t)

	for _, p := range pragmas {
		t.Run(p.name, func(t *testing.T) {
			got, err := s.pragmaValue(p.name)
			require.NoError(t, err)
			assert.Equal(t, p.want, got)
		})
	}
}

func TestSchemaColumns(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table   string
		columns []string
	}{
		{"programs", []string{"id", "problem_hash", "problem_name", "problem", "passes", "blacklist", "compiler_version", "ir_version"}},
		{"instructions", []string{"program_id", "seq", "op", "point", "text", "payload"}},
		{"instruction_uses", []string{"program_id", "seq", "constraint_index"}},
		{"diagnostics", []string{"program_id", "seq", "kind", "pass", "points", "message"}},
		{"runs", []string{"seq", "id", "problem_hash", "problem_name", "program_id", "status", "error_code", "error_message"}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			columns := tableColumns(t, s.db, tt.table)
			for _, col := range tt.columns {
				assert.Contains(t, columns, col)
			}
		})
	}
}

func TestSchemaRejectsOrphanRows(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		stmt string
	}{
		{
			name: "instruction without program",
			stmt: `INSERT INTO instructions (program_id, seq, op, point, text, payload)
				VALUES ('missing', 0, 'compute', 'D', 'x', '{}')`,
		},
		{
			name: "run naming unknown program",
			stmt: `INSERT INTO runs (id, problem_hash, problem_name, program_id, status)
				VALUES ('run-1', 'h', 'p', 'missing', 'ok')`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.db.Exec(tt.stmt)
			assert.Error(t, err)
		})
	}
}

func TestSchemaRunIDUnique(t *testing.T) {
	s := createTestStore(t)

	insert := `INSERT INTO runs (id, problem_hash, problem_name, status) VALUES ('run-1', 'h', 'p', 'failed')`
	_, err := s.db.Exec(insert)
	require.NoError(t, err)
	_, err = s.db.Exec(insert)
	assert.Error(t, err)
}

func TestMigrateFromUnversionedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ruler.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	assert.Contains(t, tableIndexes(t, s.db, "runs"), "idx_runs_problem_hash")
}

func TestMigrateSkipsAppliedSteps(t *testing.T) {
	s := createTestStore(t)

	// A fully migrated database has nothing left to run.
	require.NoError(t, migrate(s.db))
	version, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? ORDER BY name", table)
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

func queryStrings(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()

	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}
