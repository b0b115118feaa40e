package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

var _ repository.EnrollmentRepository = (*EnrollmentRepository)(nil)

// EnrollmentRepository реализует чтение журнала записей для PostgreSQL
type EnrollmentRepository struct {
	db DB
}

// NewEnrollmentRepository создает новый экземпляр EnrollmentRepository
func NewEnrollmentRepository(db DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ActiveInstructorEnrollment возвращает активную запись инструктора пользователя или nil
func (r *EnrollmentRepository) ActiveInstructorEnrollment(ctx context.Context, userID int64) (*domain.Enrollment, error) {
	query, args, err := psql.Select(enrollmentColumns...).
		From("user_seminars").
		Where(squirrel.Eq{"user_id": userID, "role": domain.RoleInstructor, "is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building instructor enrollment query: %w", err)
	}

	var enrollment domain.Enrollment
	if err := pgxscan.Get(ctx, r.db, &enrollment, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning instructor enrollment: %w", err)
	}
	return &enrollment, nil
}

// ParticipantSeminars возвращает всю историю записей участника, включая покинутые семинары
func (r *EnrollmentRepository) ParticipantSeminars(ctx context.Context, userID int64) ([]domain.ParticipantSeminar, error) {
	query, args, err := psql.Select("s.id", "s.name", "us.joined_at", "us.is_active", "us.dropped_at").
		From("user_seminars us").
		Join("seminars s ON s.id = us.seminar_id").
		Where(squirrel.Eq{"us.user_id": userID, "us.role": domain.RoleParticipant}).
		OrderBy("us.joined_at", "us.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building participant seminars query: %w", err)
	}

	seminars := []domain.ParticipantSeminar{}
	if err := pgxscan.Select(ctx, r.db, &seminars, query, args...); err != nil {
		return nil, fmt.Errorf("scanning participant seminars: %w", err)
	}
	return seminars, nil
}

// InstructorCharge возвращает семинар, который пользователь ведет сейчас, или nil
func (r *EnrollmentRepository) InstructorCharge(ctx context.Context, userID int64) (*domain.InstructorCharge, error) {
	query, args, err := psql.Select("s.id", "s.name", "us.joined_at").
		From("user_seminars us").
		Join("seminars s ON s.id = us.seminar_id").
		Where(squirrel.Eq{"us.user_id": userID, "us.role": domain.RoleInstructor, "us.is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building instructor charge query: %w", err)
	}

	var charge domain.InstructorCharge
	if err := pgxscan.Get(ctx, r.db, &charge, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning instructor charge: %w", err)
	}
	return &charge, nil
}
