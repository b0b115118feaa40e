package domain

import (
	"time"
)

// Допустимые форматы времени проведения семинара
var timeLayouts = []string{"15:04", "15:04:05"}

// ParseTimeOfDay проверяет и нормализует время проведения к виду HH:MM
func ParseTimeOfDay(s string) (string, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", InvalidArgument("time should be in HH:MM format")
}

// Seminar представляет семинар с фиксированной вместимостью
type Seminar struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Capacity  int       `json:"capacity" db:"capacity"`
	Count     int       `json:"count" db:"count"`
	Time      string    `json:"time" db:"time"` // HH:MM
	Online    bool      `json:"online" db:"online"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// SeminarDetail семинар вместе с активным составом
type SeminarDetail struct {
	Seminar
	Instructors  []SeminarMember `json:"instructors"`
	Participants []SeminarMember `json:"participants"`
}

// SeminarSummary сокращенная информация о семинаре (используется в списках)
type SeminarSummary struct {
	ID               int64           `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	CreatedAt        time.Time       `json:"-" db:"created_at"`
	ParticipantCount int             `json:"participant_count" db:"participant_count"`
	Instructors      []SeminarMember `json:"instructors" db:"-"`
}

// SeminarMember пользователь в составе семинара
type SeminarMember struct {
	SeminarID  int64      `json:"-" db:"seminar_id"`
	ID         int64      `json:"id" db:"id"`
	Username   string     `json:"username" db:"username"`
	Email      string     `json:"email" db:"email"`
	FirstName  string     `json:"first_name" db:"first_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	Role       Role       `json:"-" db:"role"`
	University *string    `json:"university,omitempty" db:"university"`
	Accepted   *bool      `json:"accepted,omitempty" db:"accepted"`
	JoinedAt   time.Time  `json:"joined_at" db:"joined_at"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	DroppedAt  *time.Time `json:"dropped_at" db:"dropped_at"`
}

// SeminarInput проверенные данные для создания семинара
type SeminarInput struct {
	Name     string `validate:"required,max=50"`
	Capacity int    `validate:"gt=0"`
	Count    int    `validate:"gt=0"`
	Time     string `validate:"required"`
	Online   bool
}

// SeminarPatch частичное обновление семинара; nil означает "не менять"
type SeminarPatch struct {
	Name     *string `validate:"omitempty,min=1,max=50"`
	Capacity *int    `validate:"omitempty,gt=0"`
	Count    *int    `validate:"omitempty,gt=0"`
	Time     *string `validate:"omitempty"`
	Online   *bool
}

// IsEmpty возвращает true если патч ничего не меняет
func (p SeminarPatch) IsEmpty() bool {
	return p.Name == nil && p.Capacity == nil && p.Count == nil && p.Time == nil && p.Online == nil
}

// SeminarOrder порядок сортировки списка семинаров
type SeminarOrder string

// Порядок сортировки
const (
	OrderDefault  SeminarOrder = ""         // По возрастанию created_at
	OrderEarliest SeminarOrder = "earliest" // По убыванию created_at
)

// SeminarFilter параметры выборки списка семинаров
type SeminarFilter struct {
	Name  string
	Order SeminarOrder
}

// Enrollment запись о связи пользователя с семинаром (история, только добавление)
type Enrollment struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	SeminarID int64      `json:"seminar_id" db:"seminar_id"`
	Role      Role       `json:"role" db:"role"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	JoinedAt  time.Time  `json:"joined_at" db:"joined_at"`
	DroppedAt *time.Time `json:"dropped_at" db:"dropped_at"`
}

// IsActiveInstructor возвращает true для активной записи инструктора
func (e *Enrollment) IsActiveInstructor() bool {
	return e.IsActive && e.Role == RoleInstructor
}
