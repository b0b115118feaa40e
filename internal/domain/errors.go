package domain

import "errors"

// ErrorKind классифицирует доменные ошибки независимо от транспорта
type ErrorKind string

// Виды ошибок
const (
	KindInvalidArgument ErrorKind = "INVALID_ARGUMENT" // Некорректный или неполный ввод
	KindForbidden       ErrorKind = "FORBIDDEN"        // Нет нужной роли или профиля
	KindNotFound        ErrorKind = "NOT_FOUND"        // Семинар, пользователь или запись не найдены
	KindConflict        ErrorKind = "CONFLICT"         // Нарушение бизнес-правила
	KindUnauthorized    ErrorKind = "UNAUTHORIZED"     // Нет или невалидный токен
)

// ErrorCode представляет стабильные коды ошибок API
type ErrorCode string

// Коды ошибок API
const (
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeInvalidRole        ErrorCode = "INVALID_ROLE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeNotParticipant     ErrorCode = "NOT_PARTICIPANT"
	CodeNotAccepted        ErrorCode = "NOT_ACCEPTED"
	CodeNotInstructor      ErrorCode = "NOT_INSTRUCTOR"
	CodeNotSeminarOwner    ErrorCode = "NOT_SEMINAR_INSTRUCTOR"
	CodeInstructorDrop     ErrorCode = "INSTRUCTOR_CANNOT_DROP"
	CodeAlreadyInstructing ErrorCode = "ALREADY_INSTRUCTING"
	CodeAlreadyJoined      ErrorCode = "ALREADY_JOINED"
	CodeSeminarFull        ErrorCode = "SEMINAR_FULL"
	CodeHasInstructor      ErrorCode = "SEMINAR_HAS_INSTRUCTOR"
	CodeCapacityTooLow     ErrorCode = "CAPACITY_BELOW_PARTICIPANTS"
	CodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	CodeSeminarBusy        ErrorCode = "SEMINAR_BUSY"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
)

// Error доменная ошибка: вид, код и человекочитаемое сообщение
type Error struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал и для ошибок, созданных через InvalidArgument
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// Доменные ошибки
var (
	// ErrSeminarNotFound возвращается когда семинар не существует
	ErrSeminarNotFound = &Error{KindNotFound, CodeNotFound, "seminar does not exist"}

	// ErrUserNotFound возвращается когда пользователь не существует
	ErrUserNotFound = &Error{KindNotFound, CodeNotFound, "user does not exist"}

	// ErrEnrollmentNotFound возвращается когда у пользователя нет активной записи на семинар
	ErrEnrollmentNotFound = &Error{KindNotFound, CodeNotFound, "you are not enrolled in this seminar"}

	// ErrInvalidRole возвращается при роли, отличной от participant и instructor
	ErrInvalidRole = &Error{KindInvalidArgument, CodeInvalidRole, "role should be participant or instructor"}

	// ErrCapacityBelowParticipants возвращается при попытке уменьшить вместимость ниже числа участников
	ErrCapacityBelowParticipants = &Error{KindInvalidArgument, CodeCapacityTooLow, "capacity should not be less than the number of active participants"}

	// ErrNotParticipant возвращается когда у пользователя нет профиля участника
	ErrNotParticipant = &Error{KindForbidden, CodeNotParticipant, "you are not a participant"}

	// ErrNotAccepted возвращается когда профиль участника не одобрен
	ErrNotAccepted = &Error{KindForbidden, CodeNotAccepted, "you are not accepted"}

	// ErrNotInstructor возвращается когда у пользователя нет профиля инструктора
	ErrNotInstructor = &Error{KindForbidden, CodeNotInstructor, "you are not an instructor"}

	// ErrNotSeminarInstructor возвращается когда пользователь не ведет этот семинар
	ErrNotSeminarInstructor = &Error{KindForbidden, CodeNotSeminarOwner, "you are not the instructor of this seminar"}

	// ErrInstructorCannotDrop возвращается при попытке инструктора покинуть свой семинар
	ErrInstructorCannotDrop = &Error{KindForbidden, CodeInstructorDrop, "instructor cannot drop the seminar"}

	// ErrAlreadyInstructingForbidden возвращается при создании второго семинара
	ErrAlreadyInstructingForbidden = &Error{KindForbidden, CodeAlreadyInstructing, "you are already the instructor of another seminar"}

	// ErrAlreadyInstructing возвращается при попытке вести второй семинар через присоединение
	ErrAlreadyInstructing = &Error{KindConflict, CodeAlreadyInstructing, "you are in charge of another seminar"}

	// ErrAlreadyJoined возвращается если у пользователя уже есть активная запись на семинар
	ErrAlreadyJoined = &Error{KindConflict, CodeAlreadyJoined, "you have already joined this seminar"}

	// ErrSeminarFull возвращается когда активных участников столько же, сколько мест
	ErrSeminarFull = &Error{KindConflict, CodeSeminarFull, "seminar is full"}

	// ErrSeminarHasInstructor возвращается когда у семинара уже есть активный инструктор
	ErrSeminarHasInstructor = &Error{KindConflict, CodeHasInstructor, "seminar already has an instructor"}

	// ErrUsernameTaken возвращается при регистрации с занятым username
	ErrUsernameTaken = &Error{KindConflict, CodeUsernameTaken, "a user with that username already exists"}

	// ErrSeminarBusy возвращается когда конкурентные изменения семинара не дали завершить операцию
	ErrSeminarBusy = &Error{KindConflict, CodeSeminarBusy, "seminar is being modified concurrently, try again"}

	// ErrUnauthorized возвращается при неудачной аутентификации
	ErrUnauthorized = &Error{KindUnauthorized, CodeUnauthorized, "unauthorized"}

	// ErrInvalidToken возвращается когда JWT токен невалиден
	ErrInvalidToken = &Error{KindUnauthorized, CodeUnauthorized, "invalid or expired token"}
)

// InvalidArgument создает ошибку валидации с произвольным сообщением
func InvalidArgument(message string) error {
	return &Error{Kind: KindInvalidArgument, Code: CodeInvalidArgument, Message: message}
}

// KindOf возвращает вид доменной ошибки; ok=false для недоменных ошибок
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// MapErrorToCode преобразует доменные ошибки в коды ошибок API
func MapErrorToCode(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
