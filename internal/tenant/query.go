package tenant

import (
	"fmt"
	"strings"
)

// Query is the value every repository builds its tenant-scoped SQL through,
// so the guard has a single chokepoint. Predicates use `?` markers which are
// rewritten to positional placeholders at build time.
type Query struct {
	kind   Kind
	base   string
	conds  []string
	args   []any
	order  string
	limit  int
	scoped bool
	exempt bool
}

// NewQuery starts a query over the given entity kind. The base statement
// carries everything up to (not including) the WHERE clause; its `?` markers
// bind to args in order, ahead of any predicate args.
func NewQuery(kind Kind, base string, args ...any) *Query {
	return &Query{kind: kind, base: base, args: args}
}

// Where appends a predicate joined with AND.
func (q *Query) Where(expr string, args ...any) *Query {
	q.conds = append(q.conds, expr)
	q.args = append(q.args, args...)
	return q
}

// OrderBy sets the ORDER BY clause.
func (q *Query) OrderBy(expr string) *Query {
	q.order = expr
	return q
}

// Limit caps the result set. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Kind returns the entity kind the query targets.
func (q *Query) Kind() Kind { return q.kind }

// Scoped reports whether the guard has injected a tenant predicate.
func (q *Query) Scoped() bool { return q.scoped }

// Exempt reports whether the guard has marked the query as a cross-tenant
// platform operation.
func (q *Query) Exempt() bool { return q.exempt }

// Build renders the final SQL and argument list. A tenant-scoped query that
// was never passed through the guard fails here instead of executing
// unscoped.
func (q *Query) Build() (string, []any, error) {
	if Classification()[q.kind] == ClassTenantScoped && !q.scoped && !q.exempt {
		return "", nil, &ScopeError{Kind: q.kind, Reason: "query built without tenant scope"}
	}

	var sb strings.Builder
	sb.WriteString(q.base)
	if len(q.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.conds, " AND "))
	}
	if q.order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.order)
	}
	if q.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}

	sql := sb.String()
	for i := 1; strings.Contains(sql, "?"); i++ {
		sql = strings.Replace(sql, "?", fmt.Sprintf("$%d", i), 1)
	}
	return sql, q.args, nil
}
