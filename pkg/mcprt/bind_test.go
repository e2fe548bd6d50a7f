package mcprt

import (
	"strings"
	"testing"
)

func TestBindParams(t *testing.T) {
	query := "SELECT * FROM port_calls WHERE port = :port AND cargo_ops >= :min_ops LIMIT :limit"

	bound, err := bindParams(query, map[string]any{
		"port":    "NLRTM",
		"min_ops": float64(1),
		"limit":   10,
	})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	want := "SELECT * FROM port_calls WHERE port = 'NLRTM' AND cargo_ops >= 1 LIMIT 10"
	if bound != want {
		t.Errorf("bound = %q, want %q", bound, want)
	}
}

func TestBindParamsMissing(t *testing.T) {
	_, err := bindParams("SELECT * FROM t WHERE a = :a AND b = :b", map[string]any{"a": 1})
	if err == nil {
		t.Fatal("unbound param accepted")
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("err = %v, should name the missing param", err)
	}
}

func TestBindParamsEscapesQuotes(t *testing.T) {
	bound, err := bindParams("SELECT * FROM vessels WHERE name = :name", map[string]any{
		"name": "O'Brien's; DROP TABLE vessels",
	})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	want := "SELECT * FROM vessels WHERE name = 'O''Brien''s; DROP TABLE vessels'"
	if bound != want {
		t.Errorf("bound = %q, want %q", bound, want)
	}
}

func TestSQLLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{float64(3.5), "3.5"},
		{float64(10), "10"},
		{int(7), "7"},
		{int64(-2), "-2"},
		{true, "1"},
		{false, "0"},
		{"plain", "'plain'"},
		{"it's", "'it''s'"},
	}
	for _, tt := range tests {
		if got := sqlLiteral(tt.in); got != tt.want {
			t.Errorf("sqlLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProbeQuery(t *testing.T) {
	got := probeQuery("SELECT * FROM port_calls WHERE port = :port AND ops > :min_ops")
	want := "SELECT * FROM port_calls WHERE port = 0 AND ops > 0"
	if got != want {
		t.Errorf("probeQuery = %q, want %q", got, want)
	}

	// No placeholders: the query passes through unchanged.
	plain := "SELECT 1 FROM vessels"
	if got := probeQuery(plain); got != plain {
		t.Errorf("probeQuery(%q) = %q", plain, got)
	}
}
