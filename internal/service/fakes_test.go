package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

// memStore хранилище в памяти с той же атомарностью, что и postgres:
// блокировка на семинар, изменения ledger применяются только при успехе fn.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*domain.User
	seminars    map[int64]*domain.Seminar
	enrollments []*domain.Enrollment
	locks       map[int64]*sync.Mutex

	// txConflicts сколько раз подряд WithLockedSeminar вернет ErrTxConflict
	txConflicts int
	lockCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*domain.User),
		seminars: make(map[int64]*domain.Seminar),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addParticipant(username string, accepted bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.users[id] = &domain.User{
		ID:          id,
		Username:    username,
		Email:       username + "@example.com",
		Participant: &domain.ParticipantProfile{ID: id, UserID: id, Accepted: accepted},
	}
	return id
}

func (s *memStore) addInstructor(username string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.users[id] = &domain.User{
		ID:         id,
		Username:   username,
		Email:      username + "@example.com",
		Instructor: &domain.InstructorProfile{ID: id, UserID: id},
	}
	return id
}

func (s *memStore) activeParticipants(seminarID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.enrollments {
		if e.SeminarID == seminarID && e.IsActive && e.Role == domain.RoleParticipant {
			n++
		}
	}
	return n
}

func (s *memStore) seminarCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seminars)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Participant != nil {
		p := *u.Participant
		c.Participant = &p
	}
	if u.Instructor != nil {
		p := *u.Instructor
		c.Instructor = &p
	}
	return &c
}

// fakeUserRepo

type fakeUserRepo struct{ *memStore }

var _ repository.UserRepository = fakeUserRepo{}

func (r fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = r.id()
	user.DateJoined = time.Now()
	if user.Participant != nil {
		user.Participant.ID = r.id()
		user.Participant.UserID = user.ID
	}
	if user.Instructor != nil {
		user.Instructor.ID = r.id()
		user.Instructor.UserID = user.ID
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r fakeUserRepo) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r fakeUserRepo) GetParticipantProfile(_ context.Context, userID int64) (*domain.ParticipantProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok && u.Participant != nil {
		p := *u.Participant
		return &p, nil
	}
	return nil, nil
}

func (r fakeUserRepo) GetInstructorProfile(_ context.Context, userID int64) (*domain.InstructorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok && u.Instructor != nil {
		p := *u.Instructor
		return &p, nil
	}
	return nil, nil
}

// fakeSeminarRepo

type fakeSeminarRepo struct{ *memStore }

var _ repository.SeminarRepository = fakeSeminarRepo{}

func (r fakeSeminarRepo) CreateWithInstructor(_ context.Context, seminar *domain.Seminar, instructorID int64, joinedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.UserID == instructorID && e.IsActiveInstructor() {
			return domain.ErrAlreadyInstructingForbidden
		}
	}
	seminar.ID = r.id()
	seminar.CreatedAt = joinedAt
	seminar.UpdatedAt = joinedAt
	stored := *seminar
	r.seminars[seminar.ID] = &stored
	r.locks[seminar.ID] = &sync.Mutex{}
	r.enrollments = append(r.enrollments, &domain.Enrollment{
		ID:        r.id(),
		UserID:    instructorID,
		SeminarID: seminar.ID,
		Role:      domain.RoleInstructor,
		IsActive:  true,
		JoinedAt:  joinedAt,
	})
	return nil
}

func (r fakeSeminarRepo) GetByID(_ context.Context, seminarID int64) (*domain.Seminar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seminar, ok := r.seminars[seminarID]
	if !ok {
		return nil, domain.ErrSeminarNotFound
	}
	c := *seminar
	return &c, nil
}

func (r fakeSeminarRepo) List(_ context.Context, filter domain.SeminarFilter) ([]*domain.SeminarSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*domain.SeminarSummary{}
	for _, seminar := range r.seminars {
		if filter.Name != "" && !strings.Contains(strings.ToLower(seminar.Name), strings.ToLower(filter.Name)) {
			continue
		}
		summary := &domain.SeminarSummary{ID: seminar.ID, Name: seminar.Name, CreatedAt: seminar.CreatedAt}
		for _, e := range r.enrollments {
			if e.SeminarID == seminar.ID && e.IsActive && e.Role == domain.RoleParticipant {
				summary.ParticipantCount++
			}
		}
		result = append(result, summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.Order == domain.OrderEarliest {
			return result[i].ID > result[j].ID
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r fakeSeminarRepo) ActiveMembers(_ context.Context, seminarIDs []int64) ([]domain.SeminarMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[int64]bool, len(seminarIDs))
	for _, id := range seminarIDs {
		wanted[id] = true
	}
	var members []domain.SeminarMember
	for _, e := range r.enrollments {
		if !e.IsActive || !wanted[e.SeminarID] {
			continue
		}
		u := r.users[e.UserID]
		member := domain.SeminarMember{
			SeminarID: e.SeminarID,
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      e.Role,
			JoinedAt:  e.JoinedAt,
			IsActive:  true,
		}
		if e.Role == domain.RoleParticipant && u.Participant != nil {
			university, accepted := u.Participant.University, u.Participant.Accepted
			member.University = &university
			member.Accepted = &accepted
		}
		members = append(members, member)
	}
	return members, nil
}

func (r fakeSeminarRepo) WithLockedSeminar(ctx context.Context, seminarID int64, fn func(ctx context.Context, ledger repository.SeminarLedger) error) error {
	r.mu.Lock()
	r.lockCalls++
	if r.txConflicts > 0 {
		r.txConflicts--
		r.mu.Unlock()
		return repository.ErrTxConflict
	}
	lock, ok := r.locks[seminarID]
	r.mu.Unlock()
	if !ok {
		return domain.ErrSeminarNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	seminar, err := r.GetByID(ctx, seminarID)
	if err != nil {
		return err
	}
	ledger := &fakeLedger{store: r.memStore, seminar: seminar}
	if err := fn(ctx, ledger); err != nil {
		return err
	}
	ledger.commit()
	return nil
}

// fakeLedger копит изменения и применяет их в commit
type fakeLedger struct {
	store   *memStore
	seminar *domain.Seminar

	inserts     []*domain.Enrollment
	deactivated map[int64]time.Time
	patched     bool
}

func (l *fakeLedger) Seminar() *domain.Seminar { return l.seminar }

func (l *fakeLedger) ActiveEnrollment(_ context.Context, userID int64) (*domain.Enrollment, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for _, e := range l.store.enrollments {
		if e.SeminarID == l.seminar.ID && e.UserID == userID && e.IsActive {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) CountActiveParticipants(_ context.Context) (int, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	n := 0
	for _, e := range l.store.enrollments {
		if e.SeminarID == l.seminar.ID && e.IsActive && e.Role == domain.RoleParticipant {
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) HasActiveInstructor(_ context.Context) (bool, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for _, e := range l.store.enrollments {
		if e.SeminarID == l.seminar.ID && e.IsActiveInstructor() {
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLedger) Insert(_ context.Context, enrollment *domain.Enrollment) error {
	enrollment.SeminarID = l.seminar.ID
	enrollment.IsActive = true
	l.inserts = append(l.inserts, enrollment)
	return nil
}

func (l *fakeLedger) Deactivate(_ context.Context, enrollmentID int64, droppedAt time.Time) error {
	if l.deactivated == nil {
		l.deactivated = make(map[int64]time.Time)
	}
	l.deactivated[enrollmentID] = droppedAt
	return nil
}

func (l *fakeLedger) Apply(_ context.Context, patch domain.SeminarPatch) (*domain.Seminar, error) {
	updated := *l.seminar
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Capacity != nil {
		updated.Capacity = *patch.Capacity
	}
	if patch.Count != nil {
		updated.Count = *patch.Count
	}
	if patch.Time != nil {
		updated.Time = *patch.Time
	}
	if patch.Online != nil {
		updated.Online = *patch.Online
	}
	l.seminar = &updated
	l.patched = true
	return &updated, nil
}

func (l *fakeLedger) commit() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	for _, e := range l.inserts {
		e.ID = l.store.id()
		c := *e
		l.store.enrollments = append(l.store.enrollments, &c)
	}
	for _, e := range l.store.enrollments {
		if at, ok := l.deactivated[e.ID]; ok {
			e.IsActive = false
			e.DroppedAt = &at
		}
	}
	if l.patched {
		s := *l.seminar
		l.store.seminars[s.ID] = &s
	}
}

// fakeEnrollmentRepo

type fakeEnrollmentRepo struct{ *memStore }

var _ repository.EnrollmentRepository = fakeEnrollmentRepo{}

func (r fakeEnrollmentRepo) ActiveInstructorEnrollment(_ context.Context, userID int64) (*domain.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.UserID == userID && e.IsActiveInstructor() {
			c := *e
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeEnrollmentRepo) ParticipantSeminars(_ context.Context, userID int64) ([]domain.ParticipantSeminar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seminars := []domain.ParticipantSeminar{}
	for _, e := range r.enrollments {
		if e.UserID != userID || e.Role != domain.RoleParticipant {
			continue
		}
		seminars = append(seminars, domain.ParticipantSeminar{
			ID:        e.SeminarID,
			Name:      r.seminars[e.SeminarID].Name,
			JoinedAt:  e.JoinedAt,
			IsActive:  e.IsActive,
			DroppedAt: e.DroppedAt,
		})
	}
	return seminars, nil
}

func (r fakeEnrollmentRepo) InstructorCharge(_ context.Context, userID int64) (*domain.InstructorCharge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.UserID == userID && e.IsActiveInstructor() {
			return &domain.InstructorCharge{ID: e.SeminarID, Name: r.seminars[e.SeminarID].Name, JoinedAt: e.JoinedAt}, nil
		}
	}
	return nil, nil
}
