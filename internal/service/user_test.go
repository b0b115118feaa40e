package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/seminar-service/internal/domain"
)

func newUserFixture() (*memStore, *UserService) {
	store := newMemStore()
	return store, NewUserService(fakeUserRepo{store}, fakeEnrollmentRepo{store})
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	year := 2015

	t.Run("participant", func(t *testing.T) {
		_, svc := newUserFixture()

		user, err := svc.Register(ctx, domain.Registration{
			Username:   "alice",
			Email:      "alice@example.com",
			FirstName:  "Alice",
			LastName:   "Smith",
			Role:       domain.RoleParticipant,
			University: "MSU",
			Accepted:   true,
		})
		require.NoError(t, err)

		assert.NotZero(t, user.ID)
		require.NotNil(t, user.Participant)
		assert.Nil(t, user.Instructor)
		assert.Equal(t, "MSU", user.Participant.University)
		assert.NotNil(t, user.Participant.Seminars)
		assert.Empty(t, user.Participant.Seminars)
		assert.Equal(t, domain.RoleParticipant, user.Role())
	})

	t.Run("instructor", func(t *testing.T) {
		_, svc := newUserFixture()

		user, err := svc.Register(ctx, domain.Registration{
			Username: "ivan",
			Email:    "ivan@example.com",
			Role:     domain.RoleInstructor,
			Company:  "Acme",
			Year:     &year,
		})
		require.NoError(t, err)

		require.NotNil(t, user.Instructor)
		assert.Nil(t, user.Participant)
		assert.Nil(t, user.Instructor.Charge)
		assert.Equal(t, &year, user.Instructor.Year)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, svc := newUserFixture()
		reg := domain.Registration{Username: "alice", Email: "alice@example.com", Role: domain.RoleParticipant}

		_, err := svc.Register(ctx, reg)
		require.NoError(t, err)

		_, err = svc.Register(ctx, reg)
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("invalid input", func(t *testing.T) {
		zero := 0
		cases := []struct {
			name string
			reg  domain.Registration
		}{
			{"missing username", domain.Registration{Email: "a@example.com", Role: domain.RoleParticipant}},
			{"bad email", domain.Registration{Username: "a", Email: "nope", Role: domain.RoleParticipant}},
			{"bad role", domain.Registration{Username: "a", Email: "a@example.com", Role: "admin"}},
			{"first name without last name", domain.Registration{Username: "a", Email: "a@example.com", FirstName: "Anna", Role: domain.RoleParticipant}},
			{"digits in name", domain.Registration{Username: "a", Email: "a@example.com", FirstName: "Anna1", LastName: "Lee", Role: domain.RoleParticipant}},
			{"non-positive year", domain.Registration{Username: "a", Email: "a@example.com", Role: domain.RoleInstructor, Year: &zero}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				store, svc := newUserFixture()

				_, err := svc.Register(ctx, tc.reg)
				kind, ok := domain.KindOf(err)
				require.True(t, ok, "expected domain error, got %v", err)
				assert.Equal(t, domain.KindInvalidArgument, kind)
				assert.Empty(t, store.users)
			})
		}
	})
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(3)
	svc := NewUserService(fakeUserRepo{f.store}, fakeEnrollmentRepo{f.store})

	instructor := f.store.addInstructor("ivan")
	alice := f.store.addParticipant("alice", true)
	seminar := f.createSeminar(t, instructor, 5)

	_, err := f.svc.JoinSeminar(ctx, alice, seminar.ID, "participant")
	require.NoError(t, err)
	_, err = f.svc.DropSeminar(ctx, alice, seminar.ID)
	require.NoError(t, err)

	t.Run("instructor sees current charge", func(t *testing.T) {
		user, err := svc.GetUser(ctx, instructor)
		require.NoError(t, err)
		require.NotNil(t, user.Instructor.Charge)
		assert.Equal(t, seminar.ID, user.Instructor.Charge.ID)
	})

	t.Run("participant sees dropped seminars", func(t *testing.T) {
		user, err := svc.GetUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, user.Participant.Seminars, 1)
		assert.Equal(t, seminar.Name, user.Participant.Seminars[0].Name)
		assert.False(t, user.Participant.Seminars[0].IsActive)
		assert.NotNil(t, user.Participant.Seminars[0].DroppedAt)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.GetUser(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserService_UpdateMe(t *testing.T) {
	ctx := context.Background()
	strPtr := func(v string) *string { return &v }

	t.Run("updates own profile kind only", func(t *testing.T) {
		store, svc := newUserFixture()
		alice := store.addParticipant("alice", true)

		user, err := svc.UpdateMe(ctx, alice, domain.UserPatch{
			Email:      strPtr("new@example.com"),
			FirstName:  strPtr("Alice"),
			LastName:   strPtr("Smith"),
			University: strPtr("SPbU"),
			Company:    strPtr("ignored"),
		})
		require.NoError(t, err)

		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.Equal(t, "SPbU", user.Participant.University)
		assert.Nil(t, user.Instructor)
	})

	t.Run("names must come together", func(t *testing.T) {
		store, svc := newUserFixture()
		alice := store.addParticipant("alice", true)

		_, err := svc.UpdateMe(ctx, alice, domain.UserPatch{FirstName: strPtr("Alice")})
		kind, _ := domain.KindOf(err)
		assert.Equal(t, domain.KindInvalidArgument, kind)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, svc := newUserFixture()

		_, err := svc.UpdateMe(ctx, 12, domain.UserPatch{Email: strPtr("x@example.com")})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
