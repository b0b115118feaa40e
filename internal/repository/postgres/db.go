package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

// DB минимальный интерфейс пула, нужный репозиториям (реализуют *pgxpool.Pool и pgxmock)
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// psql построитель запросов с плейсхолдерами PostgreSQL ($1, $2, ...)
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Коды ошибок PostgreSQL
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Имена ограничений из миграций
const (
	constraintUsername            = "users_username_key"
	constraintActiveUserSeminar   = "user_seminars_active_user_seminar_key"
	constraintActiveInstructorSem = "user_seminars_active_instructor_seminar_key"
	constraintActiveInstructorUsr = "user_seminars_active_instructor_user_key"
)

// seminarColumns колонки семинара; время отдается как HH:MM
var seminarColumns = []string{
	"id", "name", "capacity", "count", `to_char("time", 'HH24:MI') AS "time"`, "online", "created_at", "updated_at",
}

var enrollmentColumns = []string{
	"id", "user_id", "seminar_id", "role", "is_active", "joined_at", "dropped_at",
}

// mapTxError переводит ошибки конкурентного доступа в repository.ErrTxConflict
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", repository.ErrTxConflict, pgErr.Message)
		}
	}
	return err
}

// uniqueViolation возвращает имя нарушенного ограничения уникальности
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// mapEnrollmentInsertError переводит нарушения частичных уникальных индексов в доменные ошибки
func mapEnrollmentInsertError(err error, instructorTaken error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return mapTxError(err)
	}
	switch constraint {
	case constraintActiveUserSeminar:
		return domain.ErrAlreadyJoined
	case constraintActiveInstructorSem:
		return domain.ErrSeminarHasInstructor
	case constraintActiveInstructorUsr:
		return instructorTaken
	default:
		return err
	}
}

// containsPattern экранирует спецсимволы LIKE и оборачивает строку в %...%
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
