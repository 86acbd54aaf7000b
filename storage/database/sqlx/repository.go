package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cresol/portal/core"
)

const (
	pqUniqueViolation = "23505"
	pqFKViolation     = "23503"
)

// Repositories bundles every sqlx backed repository over one DB handle.
type Repositories struct {
	User       *userRepository
	Sector     *sectorRepository
	Banner     *bannerRepository
	Video      *videoRepository
	News       *newsRepository
	Event      *eventRepository
	Collection *collectionRepository
	Position   *positionRepository
	SystemLink *systemLinkRepository
	Stats      *statsRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Sector:     NewSectorRepository(db),
		Banner:     NewBannerRepository(db),
		Video:      NewVideoRepository(db),
		News:       NewNewsRepository(db),
		Event:      NewEventRepository(db),
		Collection: NewCollectionRepository(db),
		Position:   NewPositionRepository(db),
		SystemLink: NewSystemLinkRepository(db),
		Stats:      NewStatsRepository(db),
	}
}

// isValidID filters out malformed IDs before they reach postgres, which would reject them with a 22P02.
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

// pqError returns the underlying *pq.Error, if any.
func pqError(err error) (*pq.Error, bool) {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return pqErr, ok
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == pqUniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// dbError converts postgres errors into core.DBError so their details reach the client; others are wrapped.
func dbError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		return core.DBError{
			Message: pqErr.Message,
			Code:    string(pqErr.Code),
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
		}
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps "no rows" to the domain's not found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return dbError(err, msg)
}

// orderIndexErr maps the unique order_index violation to core.ErrOrderIndexConflict.
func orderIndexErr(err error, constraint, msg string) error {
	if isUniqueViolation(err, constraint) {
		return core.ErrOrderIndexConflict
	}
	return dbError(err, msg)
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

// where accumulates AND-ed conditions written with `?` bindvars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return fmt.Sprintf(" ORDER BY %s", strings.Join(parts, ", "))
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
