package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-combined predicates with positional arguments.
type Where struct {
	clauses []string
	args    []any
}

// Arg registers a value and returns its placeholder.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// Add appends a predicate. Each '?' in clause is replaced by the placeholder
// of the matching value.
func (w *Where) Add(clause string, vals ...any) {
	var b strings.Builder
	i := 0
	for _, r := range clause {
		if r == '?' && i < len(vals) {
			b.WriteString(w.Arg(vals[i]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
}

// SQL renders the WHERE clause, or an empty string when nothing was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the collected arguments.
func (w *Where) Args() []any {
	return w.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Like wraps a search term for ILIKE substring matching. Wildcards in the
// term match literally; backslash is the default LIKE escape in Postgres.
func Like(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

// OrderBy resolves a whitelisted sort column and direction.
func OrderBy(sortBy, sortDir string, allowed map[string]string, fallback string) string {
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	col, ok := allowed[sortBy]
	if !ok {
		return fallback
	}
	return col + " " + dir
}

// Paginate appends LIMIT/OFFSET when limit is positive.
func (w *Where) Paginate(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT " + w.Arg(limit) + " OFFSET " + w.Arg(offset)
}
