package mcprt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRe matches :name parameters in a saved query.
var placeholderRe = regexp.MustCompile(`:[a-zA-Z_][a-zA-Z0-9_]*`)

// probeQuery substitutes a harmless literal for every placeholder so the
// template can be guard-checked at load time without real parameters.
func probeQuery(query string) string {
	return placeholderRe.ReplaceAllString(query, "0")
}

// bindParams replaces :name placeholders with SQL literals. Values are
// rendered as NULL, numbers, or single-quoted strings with '' escaping;
// the sandbox guard still inspects the bound text before execution.
func bindParams(query string, params map[string]any) (string, error) {
	var missing []string
	bound := placeholderRe.ReplaceAllStringFunc(query, func(tok string) string {
		name := tok[1:]
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return tok
		}
		return sqlLiteral(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unbound params: %s", strings.Join(missing, ", "))
	}
	return bound, nil
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", x), "'", "''") + "'"
	}
}
