package store

import (
	"fmt"
	"sort"
	"strings"
)

// filterCols names the columns a Filter binds against; different tables
// use different timestamp and attribute-text column names (spans has no
// single "ts", metric_points has no severity).
type filterCols struct {
	ts         string // timestamp column, half-open [since, until)
	service    string
	traceID    string
	spanID     string
	severity   string // "" if the table has no severity column
	attrsJSON  string
}

// buildWhere renders f into a SQL WHERE fragment (without the leading
// "WHERE") and its positional args, in a stable clause order so generated
// SQL is identical across calls with identical filters.
func buildWhere(f Filter, cols filterCols) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Since != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", cols.ts))
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		clauses = append(clauses, fmt.Sprintf("%s < ?", cols.ts))
		args = append(args, *f.Until)
	}
	if f.Service != nil {
		clauses = append(clauses, fmt.Sprintf("%s = ?", cols.service))
		args = append(args, *f.Service)
	}
	if f.TraceID != nil && cols.traceID != "" {
		clauses = append(clauses, fmt.Sprintf("%s = ?", cols.traceID))
		args = append(args, *f.TraceID)
	}
	if f.SpanID != nil && cols.spanID != "" {
		clauses = append(clauses, fmt.Sprintf("%s = ?", cols.spanID))
		args = append(args, *f.SpanID)
	}
	if f.SeverityGTE != nil && cols.severity != "" {
		clauses = append(clauses, fmt.Sprintf("%s >= ?", cols.severity))
		args = append(args, int32(*f.SeverityGTE))
	}
	if len(f.AttrFilters) > 0 {
		keys := make([]string, 0, len(f.AttrFilters))
		for k := range f.AttrFilters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			clauses = append(clauses,
				fmt.Sprintf("json_extract_string(%s, ?) GLOB ?", cols.attrsJSON))
			args = append(args, jsonKeyPath(k), f.AttrFilters[k])
		}
	}

	if len(clauses) == 0 {
		return "1=1", args
	}
	return strings.Join(clauses, " AND "), args
}

// jsonKeyPath addresses k as a single flat key in a DuckDB JSON path,
// rather than a dotted traversal. Attrs.JSON() stores attributes as a flat
// object keyed by the literal attribute name, and OTel attribute keys are
// routinely dotted ("service.name", "scope.http.status_code"), so a plain
// "$." + k path would be misread as nested objects and never match.
func jsonKeyPath(k string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(k)
	return `$["` + escaped + `"]`
}
