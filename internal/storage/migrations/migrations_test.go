package migrations

import (
	"errors"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x String);

-- second
CREATE TABLE b (y String DEFAULT 'it''s');
`
	stmts, err := splitStatements(sql)
	if err != nil {
		t.Fatalf("splitStatements failed: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x String)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestSplitStatements_QuotedSemicolon(t *testing.T) {
	_, err := splitStatements(`INSERT INTO t VALUES ('a;b');`)
	if !errors.Is(err, errQuotedSemicolon) {
		t.Fatalf("expected errQuotedSemicolon, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, tc := range []struct {
		dir  string
		want string
	}{
		{"postgres", "001_trade_journal.sql"},
		{"clickhouse", "001_price_observations.sql"},
	} {
		fsys := postgresFS
		if tc.dir == "clickhouse" {
			fsys = clickhouseFS
		}
		files, err := load(fsys, tc.dir)
		if err != nil {
			t.Fatalf("load %s: %v", tc.dir, err)
		}
		if len(files) == 0 || files[0].name != tc.want {
			t.Errorf("%s: expected first migration %s, got %+v", tc.dir, tc.want, files)
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/signals")
	if err != nil || db != "signals" {
		t.Fatalf("got %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Fatal("expected error for dsn without database")
	}
}
