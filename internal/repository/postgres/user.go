package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository реализует repository.UserRepository для PostgreSQL
type UserRepository struct {
	db DB
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// userRow строка пользователя с обоими (опциональными) профилями
type userRow struct {
	domain.User
	ParticipantID *int64  `db:"participant_id"`
	University    *string `db:"university"`
	Accepted      *bool   `db:"accepted"`
	InstructorID  *int64  `db:"instructor_id"`
	Company       *string `db:"company"`
	Year          *int    `db:"year"`
}

func (row *userRow) toDomain() *domain.User {
	user := row.User
	if row.ParticipantID != nil {
		user.Participant = &domain.ParticipantProfile{
			ID:         *row.ParticipantID,
			UserID:     user.ID,
			University: deref(row.University),
			Accepted:   row.Accepted != nil && *row.Accepted,
		}
	}
	if row.InstructorID != nil {
		user.Instructor = &domain.InstructorProfile{
			ID:      *row.InstructorID,
			UserID:  user.ID,
			Company: deref(row.Company),
			Year:    row.Year,
		}
	}
	return &user
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func selectUsers() squirrel.SelectBuilder {
	return psql.Select(
		"u.id", "u.username", "u.email", "u.first_name", "u.last_name", "u.date_joined", "u.last_login",
		"pp.id AS participant_id", "pp.university", "pp.accepted",
		"ip.id AS instructor_id", "ip.company", "ip.year",
	).
		From("users u").
		LeftJoin("participant_profiles pp ON pp.user_id = u.id").
		LeftJoin("instructor_profiles ip ON ip.user_id = u.id")
}

// Create создает пользователя и его профиль в одной транзакции
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql.Insert("users").
		Columns("username", "email", "first_name", "last_name").
		Values(user.Username, user.Email, user.FirstName, user.LastName).
		Suffix("RETURNING id, date_joined").
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert user query: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&user.ID, &user.DateJoined); err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintUsername {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	switch {
	case user.Participant != nil:
		p := user.Participant
		query, args, err = psql.Insert("participant_profiles").
			Columns("user_id", "university", "accepted").
			Values(user.ID, p.University, p.Accepted).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert participant query: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&p.ID); err != nil {
			return fmt.Errorf("inserting participant profile: %w", err)
		}
		p.UserID = user.ID
	case user.Instructor != nil:
		p := user.Instructor
		query, args, err = psql.Insert("instructor_profiles").
			Columns("user_id", "company", "year").
			Values(user.ID, p.Company, p.Year).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert instructor query: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&p.ID); err != nil {
			return fmt.Errorf("inserting instructor profile: %w", err)
		}
		p.UserID = user.ID
	}

	return tx.Commit(ctx)
}

// GetByID получает пользователя с профилем по ID
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": userID})
}

// GetByUsername получает пользователя с профилем по username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.username": username})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	query, args, err := selectUsers().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select user query: %w", err)
	}

	var row userRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return row.toDomain(), nil
}

// Update сохраняет поля пользователя и поля его существующего профиля
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql.Update("users").
		Set("email", user.Email).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update user query: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	if p := user.Participant; p != nil {
		query, args, err = psql.Update("participant_profiles").
			Set("university", p.University).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"user_id": user.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building update participant query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("updating participant profile: %w", err)
		}
	}
	if p := user.Instructor; p != nil {
		query, args, err = psql.Update("instructor_profiles").
			Set("company", p.Company).
			Set("year", p.Year).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"user_id": user.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("building update instructor query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("updating instructor profile: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// TouchLastLogin обновляет время последнего входа
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	query, args, err := psql.Update("users").
		Set("last_login", at).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building touch login query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// GetParticipantProfile возвращает профиль участника или nil если его нет
func (r *UserRepository) GetParticipantProfile(ctx context.Context, userID int64) (*domain.ParticipantProfile, error) {
	query, args, err := psql.Select("id", "user_id", "university", "accepted").
		From("participant_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building participant profile query: %w", err)
	}

	var profile domain.ParticipantProfile
	if err := pgxscan.Get(ctx, r.db, &profile, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning participant profile: %w", err)
	}
	return &profile, nil
}

// GetInstructorProfile возвращает профиль инструктора или nil если его нет
func (r *UserRepository) GetInstructorProfile(ctx context.Context, userID int64) (*domain.InstructorProfile, error) {
	query, args, err := psql.Select("id", "user_id", "company", "year").
		From("instructor_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building instructor profile query: %w", err)
	}

	var profile domain.InstructorProfile
	if err := pgxscan.Get(ctx, r.db, &profile, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning instructor profile: %w", err)
	}
	return &profile, nil
}
