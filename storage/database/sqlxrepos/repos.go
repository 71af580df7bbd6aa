// Package sqlxrepos implements the core repositories on postgres via sqlx,
// with squirrel building the filtered queries.
//
// The uniqueness constraints declared in the migrations are load-bearing:
// unique-violation errors (23505) are mapped back to the domain conflict
// errors so that two concurrent check-then-create attempts racing past an
// in-service existence check are still rejected.
package sqlxrepos

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a postgres unique-violation on
// the given constraint.
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation && string(pqErr.Constraint) == constraint
	}
	return false
}

// isForeignKeyViolation reports whether err is a postgres foreign-key
// violation, i.e. the referenced parent row does not exist.
func isForeignKeyViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == foreignKeyViolation
	}
	return false
}

// trapNoRowsErr maps psql "no rows" err to the domain's not-found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from the requested ordering. Field names
// arrive straight from the request, so only fields present in the allowed map
// make it into the clause; anything else is dropped. The map value is the
// qualified column the field sorts on.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, deflt string) string {
	var clause string
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		ord.Field = col
		if clause != "" {
			clause += ", "
		}
		clause += ord.String()
	}
	if clause == "" {
		return deflt
	}
	return clause
}
