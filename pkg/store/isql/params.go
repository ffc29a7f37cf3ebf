package isql

import (
	"fmt"
	"strings"
	"time"

	"github.com/estate-tools/reportpipe/pkg/models/domain"
)

const dateLayout = "2006-01-02"

// renderSQL fills the {name} placeholders of a SQL template. Date values
// are normalized and quoted; everything else is substituted verbatim, since
// templates carry their own quoting for plain strings.
func renderSQL(template string, params map[string]any) string {
	sql := template
	for name, value := range params {
		placeholder := "{" + name + "}"
		if !strings.Contains(sql, placeholder) {
			continue
		}
		sql = strings.ReplaceAll(sql, placeholder, formatParam(value))
	}
	return sql
}

func formatParam(value any) string {
	switch t := value.(type) {
	case time.Time:
		return "'" + t.Format(dateLayout) + "'"
	case string:
		if d, err := time.Parse(dateLayout, strings.TrimSpace(t)); err == nil {
			return "'" + d.Format(dateLayout) + "'"
		}
		return t
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// deriveParams adds the month-indexed helpers the legacy report templates
// rely on: {month} as a two-digit month and {table_name} as the configured
// table prefix plus that month, both derived from the start_date parameter.
func deriveParams(params map[string]any, cfg domain.DatabaseConfig) map[string]any {
	out := make(map[string]any, len(params)+2)
	for k, v := range params {
		out[k] = v
	}

	start, ok := out["start_date"]
	if !ok {
		return out
	}
	var month time.Month
	switch t := start.(type) {
	case time.Time:
		month = t.Month()
	case string:
		d, err := time.Parse(dateLayout, strings.TrimSpace(t))
		if err != nil {
			if d, err = time.Parse("02/01/2006", strings.TrimSpace(t)); err != nil {
				return out
			}
		}
		month = d.Month()
	default:
		return out
	}

	mm := fmt.Sprintf("%02d", int(month))
	if _, exists := out["month"]; !exists {
		out["month"] = mm
	}
	if _, exists := out["table_name"]; !exists && cfg.TablePrefix != "" {
		out["table_name"] = cfg.TablePrefix + mm
	}
	return out
}
