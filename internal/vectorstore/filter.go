package vectorstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Condition is one clause of a portable filter.
type Condition struct {
	Field    string // metadata key, "id" or "metadata_json"
	Value    string
	Contains bool // substring match instead of equality
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter struct {
	Conditions []Condition
}

var (
	likeClause  = regexp.MustCompile(`^(?i)metadata_json\s+LIKE\s+'%((?:[^']|'')*)%'$`)
	equalClause = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*'((?:[^']|'')*)'$`)
	andSplit    = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// ParseFilter parses the portable predicate subset:
//
//	metadata_json LIKE '%text%'
//	key = 'value'
//
// joined with AND. Quotes inside values are doubled as in SQL.
// The LIKE text is matched literally and without regard to case;
// % and _ inside it are not wildcards.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}

	var f Filter
	for _, clause := range andSplit.Split(expr, -1) {
		clause = strings.TrimSpace(clause)
		if m := likeClause.FindStringSubmatch(clause); m != nil {
			f.Conditions = append(f.Conditions, Condition{
				Field:    "metadata_json",
				Value:    unquote(m[1]),
				Contains: true,
			})
			continue
		}
		if m := equalClause.FindStringSubmatch(clause); m != nil {
			f.Conditions = append(f.Conditions, Condition{Field: m[1], Value: unquote(m[2])})
			continue
		}
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, clause)
	}
	return f, nil
}

func unquote(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}

// Match evaluates the filter against an embedding.
func (f Filter) Match(e DocumentEmbedding) bool {
	for _, c := range f.Conditions {
		var value string
		switch c.Field {
		case "metadata_json":
			value = metadataJSON(e.Metadata)
		case "id":
			value = e.ID
		default:
			value = e.Metadata[c.Field]
		}
		if c.Contains {
			if !strings.Contains(strings.ToLower(value), strings.ToLower(c.Value)) {
				return false
			}
		} else if value != c.Value {
			return false
		}
	}
	return true
}

// sqlDialect renders conditions for one SQL backend. bind returns the
// placeholder for the n-th argument, counted from 1.
type sqlDialect struct {
	bind     func(n int) string
	contains func(column, arg string) string
	field    func(column, arg string) string
	key      func(name string) string
}

var (
	sqliteDialect = sqlDialect{
		bind:     func(int) string { return "?" },
		contains: func(col, arg string) string { return fmt.Sprintf("instr(lower(%s), lower(%s)) > 0", col, arg) },
		field:    func(col, arg string) string { return fmt.Sprintf("json_extract(%s, %s)", col, arg) },
		key:      func(name string) string { return "$." + name },
	}
	postgresDialect = sqlDialect{
		bind:     func(n int) string { return fmt.Sprintf("$%d", n) },
		contains: func(col, arg string) string { return fmt.Sprintf("strpos(lower(%s), lower(%s)) > 0", col, arg) },
		field:    func(col, arg string) string { return fmt.Sprintf("(%s::jsonb ->> %s)", col, arg) },
		key:      func(name string) string { return name },
	}
)

// where renders f as a parameterized WHERE clause. prefix qualifies the
// id and metadata_json columns; first is the number of the first argument.
// An empty filter renders as "".
func (f Filter) where(d sqlDialect, prefix string, first int) (string, []any) {
	if len(f.Conditions) == 0 {
		return "", nil
	}
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return d.bind(first + len(args) - 1)
	}
	meta := prefix + "metadata_json"
	for _, c := range f.Conditions {
		var lhs string
		switch c.Field {
		case "metadata_json":
			lhs = meta
		case "id":
			lhs = prefix + "id"
		default:
			lhs = d.field(meta, next(d.key(c.Field)))
		}
		if c.Contains {
			clauses = append(clauses, d.contains(lhs, next(c.Value)))
		} else {
			clauses = append(clauses, lhs+" = "+next(c.Value))
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// metadataJSON serializes metadata the same way every backend stores it.
// json.Marshal sorts map keys, so the output is stable.
func metadataJSON(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeMetadata(s string) (map[string]string, error) {
	if s == "" {
		return map[string]string{}, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata_json: %v", ErrConversion, err)
	}
	if meta == nil {
		meta = map[string]string{}
	}
	return meta, nil
}
