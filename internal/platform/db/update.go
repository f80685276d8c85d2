package db

import (
	"fmt"
	"strings"
)

// UpdateBuilder collects the SET assignments of a masked UPDATE. Only columns
// passed to Set are written; updated_at is always refreshed.
type UpdateBuilder struct {
	sets []string
	args []any
}

// Set adds "column = $n" bound to value.
func (b *UpdateBuilder) Set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

// Empty reports whether no column was assigned.
func (b *UpdateBuilder) Empty() bool {
	return len(b.sets) == 0
}

// Build returns the SET clause, the placeholder to use for the row id and
// the argument list with id appended.
func (b *UpdateBuilder) Build(id any) (set string, idParam string, args []any) {
	sets := append(append([]string(nil), b.sets...), "updated_at = now()")
	args = append(append([]any(nil), b.args...), id)
	return strings.Join(sets, ", "), fmt.Sprintf("$%d", len(args)), args
}
