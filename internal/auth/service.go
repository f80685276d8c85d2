package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/observability"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
	"github.com/rbacgate/rbacgate/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	users     *users.Service
	hasher    credential.Hasher
	sessions  *shared.SessionManager
	rbac      *rbac.Service
	metrics   *observability.Metrics
	validator *shared.Validator

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs a new Service.
func NewService(users *users.Service, hasher credential.Hasher, sessions *shared.SessionManager, rbac *rbac.Service, metrics *observability.Metrics) *Service {
	return &Service{
		users:     users,
		hasher:    hasher,
		sessions:  sessions,
		rbac:      rbac,
		metrics:   metrics,
		validator: shared.NewValidator(),
	}
}

// Login checks credentials and opens a fresh session. previousToken, when
// set, is destroyed so a pre-login token never survives authentication.
func (s *Service) Login(ctx context.Context, in LoginInput, meta shared.SessionMeta, previousToken string) (users.User, *shared.Session, error) {
	if err := s.validator.Struct(in); err != nil {
		return users.User{}, nil, err
	}
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return users.User{}, nil, err
		}
		// Spend the same bcrypt work as a real check.
		s.hasher.Verify(in.Password, s.dummy())
		s.metrics.ObserveLogin(observability.LoginInvalid)
		return users.User{}, nil, shared.ErrInvalidCredentials
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.metrics.ObserveLogin(observability.LoginInvalid)
		return users.User{}, nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.metrics.ObserveLogin(observability.LoginInactive)
		return users.User{}, nil, shared.ErrAccountInactive
	}

	if err := s.sessions.Destroy(ctx, previousToken); err != nil {
		return users.User{}, nil, err
	}
	meta.Username = user.Username
	sess, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return users.User{}, nil, err
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return users.User{}, nil, errors.Join(err, s.sessions.Destroy(ctx, sess.ID))
	}
	s.metrics.ObserveLogin(observability.LoginSuccess)
	return user, sess, nil
}

// Register creates an account from a plaintext password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, error) {
	if err := s.validator.Var("password", in.Password, "required,min=6,maxbytes=72"); err != nil {
		return users.User{}, err
	}
	return s.users.Create(ctx, users.CreateInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		RoleID:   in.RoleID,
		IsActive: in.IsActive,
	})
}

// Logout destroys the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// Me returns the account of the authenticated caller.
func (s *Service) Me(ctx context.Context, p shared.Principal) (users.User, error) {
	return s.users.Get(ctx, p.UserID)
}

// Permissions lists the permission names granted to the caller's role.
func (s *Service) Permissions(ctx context.Context, p shared.Principal) ([]string, error) {
	if !p.HasRole() {
		return []string{}, nil
	}
	return s.rbac.EffectivePermissions(ctx, *p.RoleID)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("rbacgate-dummy-password")
	})
	return s.dummyHash
}
