package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

var _ repository.SeminarRepository = (*SeminarRepository)(nil)

// SeminarRepository реализует repository.SeminarRepository для PostgreSQL
type SeminarRepository struct {
	db DB
}

// NewSeminarRepository создает новый экземпляр SeminarRepository
func NewSeminarRepository(db DB) *SeminarRepository {
	return &SeminarRepository{db: db}
}

// CreateWithInstructor атомарно создает семинар и активную запись инструктора
func (r *SeminarRepository) CreateWithInstructor(ctx context.Context, seminar *domain.Seminar, instructorID int64, joinedAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // После Commit вернет ErrTxClosed, это ожидаемо
	}()

	query, args, err := psql.Insert("seminars").
		Columns("name", "capacity", "count", `"time"`, "online").
		Values(seminar.Name, seminar.Capacity, seminar.Count, squirrel.Expr("?::text::time", seminar.Time), seminar.Online).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert seminar query: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&seminar.ID, &seminar.CreatedAt, &seminar.UpdatedAt); err != nil {
		return fmt.Errorf("inserting seminar: %w", mapTxError(err))
	}

	query, args, err = psql.Insert("user_seminars").
		Columns("user_id", "seminar_id", "role", "is_active", "joined_at").
		Values(instructorID, seminar.ID, domain.RoleInstructor, true, joinedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert enrollment query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		// Параллельное создание второго семинара тем же инструктором ловит уникальный индекс
		return mapEnrollmentInsertError(err, domain.ErrAlreadyInstructingForbidden)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

// GetByID получает семинар по ID
func (r *SeminarRepository) GetByID(ctx context.Context, seminarID int64) (*domain.Seminar, error) {
	query, args, err := psql.Select(seminarColumns...).
		From("seminars").
		Where(squirrel.Eq{"id": seminarID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select seminar query: %w", err)
	}

	var seminar domain.Seminar
	if err := pgxscan.Get(ctx, r.db, &seminar, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrSeminarNotFound
		}
		return nil, fmt.Errorf("scanning seminar: %w", err)
	}
	return &seminar, nil
}

// List возвращает семинары с числом активных участников
func (r *SeminarRepository) List(ctx context.Context, filter domain.SeminarFilter) ([]*domain.SeminarSummary, error) {
	qb := psql.Select(
		"s.id",
		"s.name",
		"s.created_at",
		"COUNT(us.id) FILTER (WHERE us.role = 'participant' AND us.is_active) AS participant_count",
	).
		From("seminars s").
		LeftJoin("user_seminars us ON us.seminar_id = s.id").
		GroupBy("s.id")

	if filter.Name != "" {
		qb = qb.Where(squirrel.ILike{"s.name": containsPattern(filter.Name)})
	}

	if filter.Order == domain.OrderEarliest {
		qb = qb.OrderBy("s.created_at DESC", "s.id DESC")
	} else {
		qb = qb.OrderBy("s.created_at ASC", "s.id ASC")
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list seminars query: %w", err)
	}

	var seminars []*domain.SeminarSummary
	if err := pgxscan.Select(ctx, r.db, &seminars, query, args...); err != nil {
		return nil, fmt.Errorf("scanning seminars: %w", err)
	}

	// Пустой массив вместо nil
	if seminars == nil {
		seminars = []*domain.SeminarSummary{}
	}
	return seminars, nil
}

// ActiveMembers возвращает активный состав указанных семинаров
func (r *SeminarRepository) ActiveMembers(ctx context.Context, seminarIDs []int64) ([]domain.SeminarMember, error) {
	if len(seminarIDs) == 0 {
		return []domain.SeminarMember{}, nil
	}

	query, args, err := psql.Select(
		"us.seminar_id",
		"u.id",
		"u.username",
		"u.email",
		"u.first_name",
		"u.last_name",
		"us.role",
		"pp.university",
		"pp.accepted",
		"us.joined_at",
		"us.is_active",
		"us.dropped_at",
	).
		From("user_seminars us").
		Join("users u ON u.id = us.user_id").
		LeftJoin("participant_profiles pp ON pp.user_id = u.id AND us.role = 'participant'").
		Where(squirrel.Eq{"us.seminar_id": seminarIDs, "us.is_active": true}).
		OrderBy("us.joined_at", "us.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building members query: %w", err)
	}

	var members []domain.SeminarMember
	if err := pgxscan.Select(ctx, r.db, &members, query, args...); err != nil {
		return nil, fmt.Errorf("scanning members: %w", err)
	}
	return members, nil
}

// WithLockedSeminar берет SELECT ... FOR UPDATE на строку семинара и выполняет fn в той же транзакции.
// Все конкурентные записи/выходы/изменения одного семинара сериализуются на этой блокировке.
func (r *SeminarRepository) WithLockedSeminar(
	ctx context.Context,
	seminarID int64,
	fn func(ctx context.Context, ledger repository.SeminarLedger) error,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql.Select(seminarColumns...).
		From("seminars").
		Where(squirrel.Eq{"id": seminarID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("building lock seminar query: %w", err)
	}

	var seminar domain.Seminar
	if err := pgxscan.Get(ctx, tx, &seminar, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return domain.ErrSeminarNotFound
		}
		return fmt.Errorf("locking seminar: %w", mapTxError(err))
	}

	if err := fn(ctx, &seminarLedger{tx: tx, seminar: &seminar}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

// seminarLedger реализует repository.SeminarLedger поверх открытой транзакции
type seminarLedger struct {
	tx      pgx.Tx
	seminar *domain.Seminar
}

func (l *seminarLedger) Seminar() *domain.Seminar {
	return l.seminar
}

func (l *seminarLedger) ActiveEnrollment(ctx context.Context, userID int64) (*domain.Enrollment, error) {
	query, args, err := psql.Select(enrollmentColumns...).
		From("user_seminars").
		Where(squirrel.Eq{"user_id": userID, "seminar_id": l.seminar.ID, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building active enrollment query: %w", err)
	}

	var enrollment domain.Enrollment
	if err := pgxscan.Get(ctx, l.tx, &enrollment, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning enrollment: %w", mapTxError(err))
	}
	return &enrollment, nil
}

func (l *seminarLedger) CountActiveParticipants(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("user_seminars").
		Where(squirrel.Eq{"seminar_id": l.seminar.ID, "role": domain.RoleParticipant, "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	var count int
	if err := l.tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting participants: %w", mapTxError(err))
	}
	return count, nil
}

func (l *seminarLedger) HasActiveInstructor(ctx context.Context) (bool, error) {
	query, args, err := psql.Select("1").
		From("user_seminars").
		Where(squirrel.Eq{"seminar_id": l.seminar.ID, "role": domain.RoleInstructor, "is_active": true}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building instructor exists query: %w", err)
	}

	var exists bool
	if err := l.tx.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking instructor: %w", mapTxError(err))
	}
	return exists, nil
}

func (l *seminarLedger) Insert(ctx context.Context, enrollment *domain.Enrollment) error {
	query, args, err := psql.Insert("user_seminars").
		Columns("user_id", "seminar_id", "role", "is_active", "joined_at").
		Values(enrollment.UserID, l.seminar.ID, enrollment.Role, true, enrollment.JoinedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert enrollment query: %w", err)
	}

	if err := l.tx.QueryRow(ctx, query, args...).Scan(&enrollment.ID); err != nil {
		return mapEnrollmentInsertError(err, domain.ErrAlreadyInstructing)
	}
	enrollment.SeminarID = l.seminar.ID
	enrollment.IsActive = true
	return nil
}

func (l *seminarLedger) Deactivate(ctx context.Context, enrollmentID int64, droppedAt time.Time) error {
	query, args, err := psql.Update("user_seminars").
		Set("is_active", false).
		Set("dropped_at", droppedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": enrollmentID, "seminar_id": l.seminar.ID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building deactivate query: %w", err)
	}

	tag, err := l.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deactivating enrollment: %w", mapTxError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

func (l *seminarLedger) Apply(ctx context.Context, patch domain.SeminarPatch) (*domain.Seminar, error) {
	if patch.IsEmpty() {
		return l.seminar, nil
	}

	qb := psql.Update("seminars").
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": l.seminar.ID}).
		Suffix("RETURNING " + joinColumns(seminarColumns))

	if patch.Name != nil {
		qb = qb.Set("name", *patch.Name)
	}
	if patch.Capacity != nil {
		qb = qb.Set("capacity", *patch.Capacity)
	}
	if patch.Count != nil {
		qb = qb.Set("count", *patch.Count)
	}
	if patch.Time != nil {
		qb = qb.Set(`"time"`, squirrel.Expr("?::text::time", *patch.Time))
	}
	if patch.Online != nil {
		qb = qb.Set("online", *patch.Online)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update seminar query: %w", err)
	}

	var updated domain.Seminar
	if err := pgxscan.Get(ctx, l.tx, &updated, query, args...); err != nil {
		return nil, fmt.Errorf("updating seminar: %w", mapTxError(err))
	}
	l.seminar = &updated
	return &updated, nil
}
