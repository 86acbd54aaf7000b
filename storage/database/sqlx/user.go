package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/cresol/portal/core"
	"github.com/cresol/portal/core/user"
)

const userColumns = `id, full_name, email, role, sector_id, subsector_id, position_id, avatar_url, is_active,
	password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	FullName     string      `db:"full_name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	SectorID     null.String `db:"sector_id"`
	SubsectorID  null.String `db:"subsector_id"`
	PositionID   null.String `db:"position_id"`
	AvatarURL    null.String `db:"avatar_url"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FullName:     usr.FullName,
		Email:        usr.Email,
		Role:         usr.Role,
		SectorID:     null.StringFromPtr(usr.SectorID),
		SubsectorID:  null.StringFromPtr(usr.SubsectorID),
		PositionID:   null.StringFromPtr(usr.PositionID),
		AvatarURL:    null.NewString(usr.AvatarURL, usr.AvatarURL != ""),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		Role:         r.Role,
		SectorID:     r.SectorID.Ptr(),
		SubsectorID:  r.SubsectorID.Ptr(),
		PositionID:   r.PositionID.Ptr(),
		AvatarURL:    r.AvatarURL.String,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	var w where
	w.add("email = ?", email)
	for _, u := range excludedUsers {
		w.add("id <> ?", u.ID)
	}
	var exists bool
	q := repo.db.Rebind("SELECT EXISTS(SELECT 1 FROM profiles" + w.String() + ")")
	if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
		return dbError(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	row := toUserRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO profiles (`+userColumns+`) VALUES (
		:id, :full_name, :email, :role, :sector_id, :subsector_id, :position_id, :avatar_url, :is_active,
		:password_hash, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if isUniqueViolation(err, "") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, dbError(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with FullName or Email matching the search keyword
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			w.add("(full_name ILIKE ? OR email ILIKE ?)", pattern, pattern)
		}
		if len(filter.Roles) > 0 {
			marks := strings.TrimSuffix(strings.Repeat("?,", len(filter.Roles)), ",")
			args := make([]interface{}, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				args = append(args, role)
			}
			w.add("role IN ("+marks+")", args...)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.SectorID != "" {
			if !isValidID(filter.SectorID) {
				return []user.User{}, nil
			}
			w.add("sector_id = ?", filter.SectorID)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	q := repo.db.Rebind("SELECT " + userColumns + " FROM profiles" + w.String() + orderBy(ordering, "created_at DESC"))
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, dbError(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	switch {
	case filter.ID != "":
		if !isValidID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM profiles WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM profiles WHERE email = $1", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	res, err := repo.db.NamedExecContext(ctx, `UPDATE profiles SET
		full_name = :full_name, email = :email, role = :role, sector_id = :sector_id, subsector_id = :subsector_id,
		position_id = :position_id, avatar_url = :avatar_url, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, row)
	if err != nil {
		if isUniqueViolation(err, "") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, dbError(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isValidID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ANY($1)", pq.Array(valid))
	if err != nil {
		return 0, dbError(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err, "deleting users")
	}
	return int(n), nil
}
