package sandbox

import (
	"strings"
	"testing"
)

func TestCheckQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain select", "SELECT * FROM vessel_movements", false},
		{"cte", "WITH r AS (SELECT route FROM vessel_movements) SELECT * FROM r", false},
		{"trailing semicolon", "SELECT 1;", false},
		{"trailing semicolon with space", "SELECT 1 ;  ", false},
		{"lowercase", "select imo from vessels", false},
		{"empty", "", true},
		{"whitespace only", "   \n\t", true},
		{"comment only", "-- nothing here", true},
		{"insert", "INSERT INTO vessels VALUES (1)", true},
		{"update", "UPDATE vessels SET flag = 'XX'", true},
		{"delete", "DELETE FROM vessels", true},
		{"drop", "DROP TABLE vessels", true},
		{"create", "CREATE TABLE x (id INT)", true},
		{"alter", "ALTER TABLE vessels ADD COLUMN x", true},
		{"truncate", "TRUNCATE TABLE vessels", true},
		{"replace", "REPLACE INTO vessels VALUES (1)", true},
		{"grant", "GRANT ALL ON vessels TO x", true},
		{"attach", "ATTACH DATABASE 'x.db' AS x", true},
		{"pragma", "PRAGMA journal_mode", true},
		{"vacuum", "VACUUM", true},
		{"multi statement", "SELECT 1; SELECT 2", true},
		{"multi statement mutation", "SELECT 1; DROP TABLE vessels", true},
		{"denied verb mid-query", "SELECT * FROM vessels WHERE 1=1 UNION SELECT * FROM x; DELETE FROM x", true},
		{"keyword buried in select", "SELECT 1 FROM x WHERE y IN (SELECT z FROM w) AND EXISTS (DELETE FROM q)", true},
		{"keyword in string literal", "SELECT 'drop table vessels' FROM vessels", false},
		{"keyword in double-quoted identifier", `SELECT "delete" FROM vessels`, false},
		{"keyword in line comment", "SELECT 1 -- drop table\nFROM vessels", false},
		{"keyword in block comment", "SELECT /* update */ 1 FROM vessels", false},
		{"semicolon in literal", "SELECT ';' FROM vessels", false},
		{"escaped quote in literal", "SELECT 'it''s; fine' FROM vessels", false},
		{"identifier containing denied substring", "SELECT updated_at, created_at FROM themes_view", false},
		{"column named dropoff", "SELECT dropoff FROM port_stats", false},
		{"not starting with select", "EXPLAIN SELECT 1", true},
		{"exec", "EXEC sp_something", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := CheckQuery(tt.query)
			if (f != nil) != tt.wantErr {
				t.Errorf("CheckQuery(%q) = %v, wantErr=%v", tt.query, f, tt.wantErr)
			}
			if f != nil && f.Kind != FailRejected {
				t.Errorf("CheckQuery(%q) kind = %s, want %s", tt.query, f.Kind, FailRejected)
			}
		})
	}
}

func TestStripLiterals(t *testing.T) {
	tests := []struct {
		in       string
		contains string
		excludes string
	}{
		{"SELECT 'drop' FROM t", "SELECT", "drop"},
		{"SELECT a -- delete this\nFROM t", "FROM", "delete"},
		{"SELECT /* insert */ a FROM t", "FROM", "insert"},
		{"SELECT `update` FROM t", "FROM", "update"},
		{`SELECT "grant" FROM t`, "FROM", "grant"},
	}
	for _, tt := range tests {
		out := stripLiterals(tt.in)
		if !strings.Contains(out, tt.contains) {
			t.Errorf("stripLiterals(%q) = %q, missing %q", tt.in, out, tt.contains)
		}
		if strings.Contains(out, tt.excludes) {
			t.Errorf("stripLiterals(%q) = %q, should not contain %q", tt.in, out, tt.excludes)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("SELECT imo, name FROM vessels WHERE flag='DK'")
	want := []string{"select", "imo", "name", "from", "vessels", "where", "flag", "dk"}
	if len(got) != len(want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
