package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/metrics"
	"github.com/aidar/seminar-service/internal/repository"
)

const defaultRetryBaseDelay = 10 * time.Millisecond

// RetryPolicy bounds the internal retry of enrollment transactions aborted by
// concurrent updates. Callers never observe these retries.
type RetryPolicy struct {
	Attempts  uint64
	BaseDelay time.Duration
}

// SeminarService is the enrollment engine: it owns every write to seminars
// and enrollment records and enforces the role and capacity rules.
type SeminarService struct {
	seminarRepo    repository.SeminarRepository
	enrollmentRepo repository.EnrollmentRepository
	userRepo       repository.UserRepository
	retryPolicy    RetryPolicy
	metrics        *metrics.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

// NewSeminarService creates a new SeminarService
func NewSeminarService(
	seminarRepo repository.SeminarRepository,
	enrollmentRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	retryPolicy RetryPolicy,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SeminarService {
	if retryPolicy.BaseDelay <= 0 {
		retryPolicy.BaseDelay = defaultRetryBaseDelay
	}
	return &SeminarService{
		seminarRepo:    seminarRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		retryPolicy:    retryPolicy,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateSeminar creates a seminar and makes the requester its instructor
func (s *SeminarService) CreateSeminar(ctx context.Context, requesterID int64, in domain.SeminarInput) (detail *domain.SeminarDetail, err error) {
	defer func() { s.metrics.ObserveOperation("create", err) }()

	profile, err := s.userRepo.GetInstructorProfile(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotInstructor
	}

	charge, err := s.enrollmentRepo.ActiveInstructorEnrollment(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if charge != nil {
		return nil, domain.ErrAlreadyInstructingForbidden
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	at, err := domain.ParseTimeOfDay(in.Time)
	if err != nil {
		return nil, err
	}

	seminar := &domain.Seminar{
		Name:     in.Name,
		Capacity: in.Capacity,
		Count:    in.Count,
		Time:     at,
		Online:   in.Online,
	}

	// A concurrent create by the same instructor is caught by the unique index
	// on active instructor enrollments and surfaces as ErrAlreadyInstructingForbidden.
	err = s.withRetry(ctx, "create", func(ctx context.Context) error {
		return s.seminarRepo.CreateWithInstructor(ctx, seminar, requesterID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seminar created",
		"seminar_id", seminar.ID,
		"user_id", requesterID,
		"capacity", seminar.Capacity,
	)
	return s.GetSeminar(ctx, seminar.ID)
}

// UpdateSeminar applies a partial update; only the active instructor may do it
func (s *SeminarService) UpdateSeminar(ctx context.Context, requesterID, seminarID int64, patch domain.SeminarPatch) (detail *domain.SeminarDetail, err error) {
	defer func() { s.metrics.ObserveOperation("update", err) }()

	err = s.withRetry(ctx, "update", func(ctx context.Context) error {
		return s.seminarRepo.WithLockedSeminar(ctx, seminarID, func(ctx context.Context, ledger repository.SeminarLedger) error {
			enrollment, err := ledger.ActiveEnrollment(ctx, requesterID)
			if err != nil {
				return err
			}
			if enrollment == nil || !enrollment.IsActiveInstructor() {
				return domain.ErrNotSeminarInstructor
			}

			p := patch
			if p.Name != nil {
				name := strings.TrimSpace(*p.Name)
				p.Name = &name
			}
			if err := validateInput(p); err != nil {
				return err
			}
			if p.Time != nil {
				at, err := domain.ParseTimeOfDay(*p.Time)
				if err != nil {
					return err
				}
				p.Time = &at
			}

			if p.Capacity != nil {
				active, err := ledger.CountActiveParticipants(ctx)
				if err != nil {
					return err
				}
				if *p.Capacity < active {
					return domain.ErrCapacityBelowParticipants
				}
			}

			updated, err := ledger.Apply(ctx, p)
			if err != nil {
				return err
			}
			if p.Capacity != nil {
				s.logger.Info("Seminar capacity changed",
					"seminar_id", updated.ID,
					"user_id", requesterID,
					"capacity", updated.Capacity,
				)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetSeminar(ctx, seminarID)
}

// ListSeminars returns seminars filtered by a case-insensitive name substring
func (s *SeminarService) ListSeminars(ctx context.Context, filter domain.SeminarFilter) ([]*domain.SeminarSummary, error) {
	seminars, err := s.seminarRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(seminars) == 0 {
		return seminars, nil
	}

	ids := make([]int64, len(seminars))
	byID := make(map[int64]*domain.SeminarSummary, len(seminars))
	for i, seminar := range seminars {
		ids[i] = seminar.ID
		seminar.Instructors = []domain.SeminarMember{}
		byID[seminar.ID] = seminar
	}

	members, err := s.seminarRepo.ActiveMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if member.Role != domain.RoleInstructor {
			continue
		}
		if seminar, ok := byID[member.SeminarID]; ok {
			seminar.Instructors = append(seminar.Instructors, member)
		}
	}

	return seminars, nil
}

// GetSeminar returns a seminar with its active instructor and participants
func (s *SeminarService) GetSeminar(ctx context.Context, seminarID int64) (*domain.SeminarDetail, error) {
	seminar, err := s.seminarRepo.GetByID(ctx, seminarID)
	if err != nil {
		return nil, err
	}

	members, err := s.seminarRepo.ActiveMembers(ctx, []int64{seminarID})
	if err != nil {
		return nil, err
	}

	detail := &domain.SeminarDetail{
		Seminar:      *seminar,
		Instructors:  []domain.SeminarMember{},
		Participants: []domain.SeminarMember{},
	}
	for _, member := range members {
		switch member.Role {
		case domain.RoleInstructor:
			detail.Instructors = append(detail.Instructors, member)
		case domain.RoleParticipant:
			detail.Participants = append(detail.Participants, member)
		}
	}
	return detail, nil
}

// JoinSeminar enrolls the requester into a seminar with the given role.
// Participant joins are admitted under the seminar lock so that concurrent
// joins can never push the active participant count above capacity.
func (s *SeminarService) JoinSeminar(ctx context.Context, requesterID, seminarID int64, rawRole string) (detail *domain.SeminarDetail, err error) {
	defer func() { s.metrics.ObserveOperation("join", err) }()

	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}

	// Profiles are read before the lock is taken: a locked transaction must not
	// wait on a second pool connection.
	var (
		participant *domain.ParticipantProfile
		instructor  *domain.InstructorProfile
		charge      *domain.Enrollment
	)
	switch role {
	case domain.RoleParticipant:
		if participant, err = s.userRepo.GetParticipantProfile(ctx, requesterID); err != nil {
			return nil, err
		}
	case domain.RoleInstructor:
		if instructor, err = s.userRepo.GetInstructorProfile(ctx, requesterID); err != nil {
			return nil, err
		}
		if charge, err = s.enrollmentRepo.ActiveInstructorEnrollment(ctx, requesterID); err != nil {
			return nil, err
		}
	}

	err = s.withRetry(ctx, "join", func(ctx context.Context) error {
		return s.seminarRepo.WithLockedSeminar(ctx, seminarID, func(ctx context.Context, ledger repository.SeminarLedger) error {
			existing, err := ledger.ActiveEnrollment(ctx, requesterID)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrAlreadyJoined
			}

			switch role {
			case domain.RoleParticipant:
				if participant == nil {
					return domain.ErrNotParticipant
				}
				if !participant.Accepted {
					return domain.ErrNotAccepted
				}
				active, err := ledger.CountActiveParticipants(ctx)
				if err != nil {
					return err
				}
				if active >= ledger.Seminar().Capacity {
					return domain.ErrSeminarFull
				}
			case domain.RoleInstructor:
				if instructor == nil {
					return domain.ErrNotInstructor
				}
				if charge != nil {
					return domain.ErrAlreadyInstructing
				}
				taken, err := ledger.HasActiveInstructor(ctx)
				if err != nil {
					return err
				}
				if taken {
					return domain.ErrSeminarHasInstructor
				}
			}

			return ledger.Insert(ctx, &domain.Enrollment{
				UserID:   requesterID,
				Role:     role,
				JoinedAt: s.now(),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seminar joined",
		"seminar_id", seminarID,
		"user_id", requesterID,
		"role", role,
	)
	return s.GetSeminar(ctx, seminarID)
}

// DropSeminar ends the requester's active participant enrollment.
// Instructors cannot drop: a seminar always keeps its instructor of record.
func (s *SeminarService) DropSeminar(ctx context.Context, requesterID, seminarID int64) (detail *domain.SeminarDetail, err error) {
	defer func() { s.metrics.ObserveOperation("drop", err) }()

	err = s.withRetry(ctx, "drop", func(ctx context.Context) error {
		return s.seminarRepo.WithLockedSeminar(ctx, seminarID, func(ctx context.Context, ledger repository.SeminarLedger) error {
			enrollment, err := ledger.ActiveEnrollment(ctx, requesterID)
			if err != nil {
				return err
			}
			if enrollment == nil {
				return domain.ErrEnrollmentNotFound
			}
			if enrollment.Role == domain.RoleInstructor {
				return domain.ErrInstructorCannotDrop
			}
			return ledger.Deactivate(ctx, enrollment.ID, s.now())
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seminar dropped",
		"seminar_id", seminarID,
		"user_id", requesterID,
	)
	return s.GetSeminar(ctx, seminarID)
}

// withRetry reruns fn from scratch while the repository reports that the
// transaction was aborted by a concurrent update.
// Once the budget is spent the caller gets domain.ErrSeminarBusy.
func (s *SeminarService) withRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.retryPolicy.Attempts, retry.NewExponential(s.retryPolicy.BaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, repository.ErrTxConflict) {
			s.metrics.ObserveRetry(operation)
			s.logger.Warn("Retrying enrollment transaction",
				"operation", operation,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, repository.ErrTxConflict) {
		s.logger.Error("Enrollment transaction retries exhausted",
			"operation", operation,
			"error", err,
		)
		return fmt.Errorf("%w: %w", domain.ErrSeminarBusy, err)
	}
	return err
}
