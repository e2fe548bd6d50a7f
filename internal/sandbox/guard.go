// CLAUDE:SUMMARY Statement guard — comment/literal stripping, single-statement check, whole-token mutation denylist
package sandbox

import (
	"strings"
)

// denied lists verbs that must never reach the traffic mirror. Matched as
// whole case-insensitive tokens after literals and comments are stripped,
// so "updated_at" or 'drop zone' inside a string cannot false-positive.
// The sqlite-specific verbs (attach, pragma, vacuum, reindex) widen the
// standard mutation/DDL/DCL set because the mirror is SQLite.
var denied = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true,
	"alter": true, "create": true, "grant": true, "truncate": true,
	"replace": true, "exec": true, "call": true,
	"attach": true, "detach": true, "pragma": true, "vacuum": true, "reindex": true,
}

// CheckQuery enforces the read-only single-statement policy. It returns a
// *Failure with Kind FailRejected, or nil when the query may run. It never
// touches the database.
func CheckQuery(query string) *Failure {
	stripped := stripLiterals(query)

	if idx := strings.IndexByte(stripped, ';'); idx >= 0 {
		if strings.TrimSpace(stripped[idx+1:]) != "" {
			return rejected("multiple statements are not allowed")
		}
		stripped = stripped[:idx]
	}

	tokens := tokenize(stripped)
	if len(tokens) == 0 {
		return rejected("empty query")
	}
	if first := tokens[0]; first != "select" && first != "with" {
		return rejected("only SELECT statements are allowed, got %q", first)
	}
	for _, tok := range tokens {
		if denied[tok] {
			return rejected("query contains forbidden keyword %q", tok)
		}
	}
	return nil
}

// stripLiterals blanks out string literals, quoted identifiers and comments
// so that only real SQL tokens remain for inspection. Quote characters are
// kept as spaces to preserve token boundaries.
func stripLiterals(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	const (
		code = iota
		singleQuote
		doubleQuote
		backtick
		lineComment
		blockComment
	)
	state := code

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch state {
		case code:
			switch {
			case c == '\'':
				state = singleQuote
				b.WriteByte(' ')
			case c == '"':
				state = doubleQuote
				b.WriteByte(' ')
			case c == '`':
				state = backtick
				b.WriteByte(' ')
			case c == '-' && i+1 < len(query) && query[i+1] == '-':
				state = lineComment
				i++
			case c == '/' && i+1 < len(query) && query[i+1] == '*':
				state = blockComment
				i++
			default:
				b.WriteByte(c)
			}
		case singleQuote:
			// '' escapes a quote inside the literal
			if c == '\'' {
				if i+1 < len(query) && query[i+1] == '\'' {
					i++
				} else {
					state = code
					b.WriteByte(' ')
				}
			}
		case doubleQuote:
			if c == '"' {
				state = code
				b.WriteByte(' ')
			}
		case backtick:
			if c == '`' {
				state = code
				b.WriteByte(' ')
			}
		case lineComment:
			if c == '\n' {
				state = code
				b.WriteByte('\n')
			}
		case blockComment:
			if c == '*' && i+1 < len(query) && query[i+1] == '/' {
				state = code
				i++
			}
		}
	}
	return b.String()
}

// tokenize splits stripped SQL into lower-cased word tokens.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			cur.WriteByte(c)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, strings.ToLower(cur.String()))
	}
	return tokens
}
