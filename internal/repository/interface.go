package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aidar/seminar-service/internal/domain"
)

// ErrTxConflict возвращается когда транзакция прервана из-за конкурентного доступа
// (serialization failure, deadlock) и может быть безопасно повторена целиком
var ErrTxConflict = errors.New("transaction aborted by concurrent update")

// UserRepository определяет методы для работы с пользователями и их профилями
type UserRepository interface {
	// Create создает пользователя вместе с единственным профилем (participant или instructor)
	Create(ctx context.Context, user *domain.User) error

	// GetByID получает пользователя с профилем по ID
	GetByID(ctx context.Context, userID int64) (*domain.User, error)

	// GetByUsername получает пользователя с профилем по username
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update сохраняет поля пользователя и поля его существующего профиля
	Update(ctx context.Context, user *domain.User) error

	// TouchLastLogin обновляет время последнего входа
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error

	// GetParticipantProfile возвращает профиль участника или nil если его нет
	GetParticipantProfile(ctx context.Context, userID int64) (*domain.ParticipantProfile, error)

	// GetInstructorProfile возвращает профиль инструктора или nil если его нет
	GetInstructorProfile(ctx context.Context, userID int64) (*domain.InstructorProfile, error)
}

// SeminarRepository определяет методы для работы с семинарами
type SeminarRepository interface {
	// CreateWithInstructor атомарно создает семинар и активную запись инструктора
	CreateWithInstructor(ctx context.Context, seminar *domain.Seminar, instructorID int64, joinedAt time.Time) error

	// GetByID получает семинар по ID
	GetByID(ctx context.Context, seminarID int64) (*domain.Seminar, error)

	// List возвращает семинары с учетом фильтра по имени и порядка
	List(ctx context.Context, filter domain.SeminarFilter) ([]*domain.SeminarSummary, error)

	// ActiveMembers возвращает активный состав указанных семинаров
	ActiveMembers(ctx context.Context, seminarIDs []int64) ([]domain.SeminarMember, error)

	// WithLockedSeminar выполняет fn в транзакции под эксклюзивной блокировкой семинара.
	// Возвращает domain.ErrSeminarNotFound если семинара нет. Ошибка fn откатывает транзакцию.
	WithLockedSeminar(ctx context.Context, seminarID int64, fn func(ctx context.Context, ledger SeminarLedger) error) error
}

// SeminarLedger операции над одним семинаром внутри его блокировки
type SeminarLedger interface {
	// Seminar возвращает заблокированный семинар
	Seminar() *domain.Seminar

	// ActiveEnrollment возвращает активную запись пользователя на этот семинар или nil
	ActiveEnrollment(ctx context.Context, userID int64) (*domain.Enrollment, error)

	// CountActiveParticipants считает активных участников семинара
	CountActiveParticipants(ctx context.Context) (int, error)

	// HasActiveInstructor проверяет есть ли у семинара активный инструктор
	HasActiveInstructor(ctx context.Context) (bool, error)

	// Insert добавляет новую активную запись
	Insert(ctx context.Context, enrollment *domain.Enrollment) error

	// Deactivate помечает запись неактивной и проставляет dropped_at
	Deactivate(ctx context.Context, enrollmentID int64, droppedAt time.Time) error

	// Apply применяет частичное обновление к семинару
	Apply(ctx context.Context, patch domain.SeminarPatch) (*domain.Seminar, error)
}

// EnrollmentRepository определяет методы чтения журнала записей
type EnrollmentRepository interface {
	// ActiveInstructorEnrollment возвращает активную запись инструктора пользователя (любой семинар) или nil
	ActiveInstructorEnrollment(ctx context.Context, userID int64) (*domain.Enrollment, error)

	// ParticipantSeminars возвращает всю историю записей участника
	ParticipantSeminars(ctx context.Context, userID int64) ([]domain.ParticipantSeminar, error)

	// InstructorCharge возвращает семинар, который пользователь ведет сейчас, или nil
	InstructorCharge(ctx context.Context, userID int64) (*domain.InstructorCharge, error)
}
