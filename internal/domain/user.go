package domain

import "time"

// Role роль пользователя в семинаре
type Role string

// Возможные роли
const (
	RoleParticipant Role = "participant" // Слушатель семинара, учитывается во вместимости
	RoleInstructor  Role = "instructor"  // Ведущий семинара, не более одного на семинар
)

// ParseRole разбирает роль из строки запроса
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleParticipant:
		return RoleParticipant, nil
	case RoleInstructor:
		return RoleInstructor, nil
	default:
		return "", ErrInvalidRole
	}
}

// User представляет зарегистрированного пользователя с профилем одного вида
type User struct {
	ID          int64               `json:"id" db:"id"`
	Username    string              `json:"username" db:"username"`
	Email       string              `json:"email" db:"email"`
	FirstName   string              `json:"first_name" db:"first_name"`
	LastName    string              `json:"last_name" db:"last_name"`
	DateJoined  time.Time           `json:"date_joined" db:"date_joined"`
	LastLogin   *time.Time          `json:"last_login" db:"last_login"`
	Participant *ParticipantProfile `json:"participant" db:"-"`
	Instructor  *InstructorProfile  `json:"instructor" db:"-"`
}

// Role возвращает роль, зафиксированную при регистрации
func (u *User) Role() Role {
	if u.Instructor != nil {
		return RoleInstructor
	}
	return RoleParticipant
}

// ParticipantProfile профиль участника
type ParticipantProfile struct {
	ID         int64  `json:"id" db:"id"`
	UserID     int64  `json:"-" db:"user_id"`
	University string `json:"university" db:"university"`
	Accepted   bool   `json:"accepted" db:"accepted"`
	// Seminars заполняется только при выдаче пользователя
	Seminars []ParticipantSeminar `json:"seminars" db:"-"`
}

// InstructorProfile профиль инструктора
type InstructorProfile struct {
	ID      int64             `json:"id" db:"id"`
	UserID  int64             `json:"-" db:"user_id"`
	Company string            `json:"company" db:"company"`
	Year    *int              `json:"year" db:"year"`
	Charge  *InstructorCharge `json:"charge" db:"-"`
}

// ParticipantSeminar запись участника о семинаре (в том числе покинутом)
type ParticipantSeminar struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	DroppedAt *time.Time `json:"dropped_at" db:"dropped_at"`
}

// InstructorCharge семинар, который инструктор ведет сейчас
type InstructorCharge struct {
	ID       int64     `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Registration проверенные данные для регистрации пользователя
type Registration struct {
	Username   string `validate:"required,max=150"`
	Email      string `validate:"required,email"`
	FirstName  string `validate:"omitempty,alpha,max=150"`
	LastName   string `validate:"omitempty,alpha,max=150"`
	Role       Role   `validate:"required,oneof=participant instructor"`
	University string `validate:"max=500"`
	Accepted   bool
	Company    string `validate:"max=500"`
	Year       *int   `validate:"omitempty,gt=0"`
}

// UserPatch частичное обновление своего профиля; nil означает "не менять"
type UserPatch struct {
	Email      *string `validate:"omitempty,email"`
	FirstName  *string `validate:"omitempty,alpha,max=150"`
	LastName   *string `validate:"omitempty,alpha,max=150"`
	University *string `validate:"omitempty,max=500"`
	Company    *string `validate:"omitempty,max=500"`
	Year       *int    `validate:"omitempty,gt=0"`
}
