package service

import (
	"context"

	"github.com/aidar/seminar-service/internal/domain"
	"github.com/aidar/seminar-service/internal/repository"
)

// UserService handles registration and profile management.
// The profile kind is fixed at registration and never changes.
type UserService struct {
	userRepo       repository.UserRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, enrollmentRepo repository.EnrollmentRepository) *UserService {
	return &UserService{
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Register creates a user together with exactly one profile
func (s *UserService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	if err := validateInput(reg); err != nil {
		return nil, err
	}
	if (reg.FirstName == "") != (reg.LastName == "") {
		return nil, domain.InvalidArgument("first_name and last_name should appear together")
	}

	user := &domain.User{
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
	}
	switch reg.Role {
	case domain.RoleParticipant:
		user.Participant = &domain.ParticipantProfile{
			University: reg.University,
			Accepted:   reg.Accepted,
		}
	case domain.RoleInstructor:
		user.Instructor = &domain.InstructorProfile{
			Company: reg.Company,
			Year:    reg.Year,
		}
	default:
		return nil, domain.ErrInvalidRole
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.GetUser(ctx, user.ID)
}

// GetUser retrieves a user with profile, enrollment history and current charge
func (s *UserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Participant != nil {
		seminars, err := s.enrollmentRepo.ParticipantSeminars(ctx, userID)
		if err != nil {
			return nil, err
		}
		user.Participant.Seminars = seminars
	}
	if user.Instructor != nil {
		charge, err := s.enrollmentRepo.InstructorCharge(ctx, userID)
		if err != nil {
			return nil, err
		}
		user.Instructor.Charge = charge
	}

	return user, nil
}

// UpdateMe applies a partial update to the caller's user and profile fields.
// Fields that belong to the other profile kind are ignored.
func (s *UserService) UpdateMe(ctx context.Context, userID int64, patch domain.UserPatch) (*domain.User, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if (patch.FirstName == nil) != (patch.LastName == nil) {
		return nil, domain.InvalidArgument("first_name and last_name should appear together")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
		user.LastName = *patch.LastName
	}
	if p := user.Participant; p != nil && patch.University != nil {
		p.University = *patch.University
	}
	if p := user.Instructor; p != nil {
		if patch.Company != nil {
			p.Company = *patch.Company
		}
		if patch.Year != nil {
			p.Year = patch.Year
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.GetUser(ctx, userID)
}
