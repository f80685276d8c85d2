package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rbacgate/rbacgate/internal/credential"
	"github.com/rbacgate/rbacgate/internal/rbac"
	"github.com/rbacgate/rbacgate/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo      Repository
	hasher    credential.Hasher
	validator *shared.Validator
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, hasher credential.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, validator: shared.NewValidator(), now: time.Now}
}

// List returns all users, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns a user or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if shared.ValidateID("id", id) != nil {
		return User{}, shared.NotFound("user not found")
	}
	u, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, shared.NotFound("user not found")
	}
	return u, nil
}

// GetByUsername returns a user, password hash included, or ErrNotFound.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	u, found, err := s.repo.FindByUsername(ctx, shared.NormalizeText(username))
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, shared.NotFound("user not found")
	}
	return u, nil
}

// Create validates, hashes and stores a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Username = shared.NormalizeText(in.Username)
	in.Email = shared.NormalizeText(in.Email)
	in.RoleID = shared.NormalizeOptional(in.RoleID)
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	if in.Password == "" && in.PasswordHash == "" {
		return User{}, shared.NewValidationError("password", "is required")
	}

	if err := s.checkUnique(ctx, "", in.Username, in.Email); err != nil {
		return User{}, err
	}
	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return User{}, err
	}

	hash := in.PasswordHash
	if in.Password != "" {
		var err error
		if hash, err = s.hasher.Hash(in.Password); err != nil {
			return User{}, err
		}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.repo.Create(ctx, NewUser{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       in.RoleID,
		IsActive:     active,
	})
}

// Update applies the fields present in in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	if shared.ValidateID("id", id) != nil {
		return User{}, shared.NotFound("user not found")
	}
	var patch Patch
	errs := []error{
		in.Username.NotNull("username"),
		in.Email.NotNull("email"),
		in.Password.NotNull("password"),
		in.IsActive.NotNull("is_active"),
	}
	if in.Username.Set {
		v := shared.NormalizeText(in.Username.Value)
		errs = append(errs, s.validator.Var("username", v, "required,min=3,max=255"))
		patch.Username = shared.Some(v)
	}
	if in.Email.Set {
		v := shared.NormalizeText(in.Email.Value)
		errs = append(errs, s.validator.Var("email", v, "required,email,max=255"))
		patch.Email = shared.Some(v)
	}
	if in.Password.Set {
		errs = append(errs, s.validator.Var("password", in.Password.Value, "required,min=6,maxbytes=72"))
	}
	if in.RoleID.Set {
		v := shared.NormalizeOptional(in.RoleID.Value)
		if v != nil {
			errs = append(errs, shared.ValidateID("role_id", *v))
		}
		patch.RoleID = shared.Some(v)
	}
	if in.IsActive.Set {
		patch.IsActive = in.IsActive
	}
	if err := shared.Merge(errs...); err != nil {
		return User{}, err
	}

	if _, found, err := s.repo.FindByID(ctx, id); err != nil {
		return User{}, err
	} else if !found {
		return User{}, shared.NotFound("user not found")
	}
	if err := s.checkUnique(ctx, id, patch.Username.Value, patch.Email.Value); err != nil {
		return User{}, err
	}
	if patch.RoleID.Set {
		if err := s.checkRole(ctx, patch.RoleID.Value); err != nil {
			return User{}, err
		}
	}
	if in.Password.Set {
		hash, err := s.hasher.Hash(in.Password.Value)
		if err != nil {
			return User{}, err
		}
		patch.PasswordHash = shared.Some(hash)
	}

	u, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, shared.NotFound("user not found")
	}
	return u, nil
}

// Delete removes a user or reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if shared.ValidateID("id", id) != nil {
		return shared.NotFound("user not found")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFound("user not found")
	}
	return nil
}

// RecordLogin stamps last_login with the current time.
func (s *Service) RecordLogin(ctx context.Context, id string) error {
	return s.repo.TouchLastLogin(ctx, id, s.now().UTC())
}

// LookupIdentity loads the live account state for the request gate.
func (s *Service) LookupIdentity(ctx context.Context, id string) (rbac.Identity, bool, error) {
	if shared.ValidateID("id", id) != nil {
		return rbac.Identity{}, false, nil
	}
	u, found, err := s.repo.FindByID(ctx, id)
	if err != nil || !found {
		return rbac.Identity{}, false, err
	}
	return rbac.Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		RoleID:   u.RoleID,
		IsActive: u.IsActive,
	}, true, nil
}

// checkUnique rejects a username or email held by a user other than selfID.
// Empty values are skipped.
func (s *Service) checkUnique(ctx context.Context, selfID, username, email string) error {
	if username != "" {
		other, found, err := s.repo.FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if found && other.ID != selfID {
			return shared.Conflict("username already exists")
		}
	}
	if email != "" {
		other, found, err := s.repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if found && other.ID != selfID {
			return shared.Conflict("email already exists")
		}
	}
	return nil
}

func (s *Service) checkRole(ctx context.Context, roleID *string) error {
	if roleID == nil {
		return nil
	}
	exists, err := s.repo.RoleExists(ctx, *roleID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NotFound("role not found")
	}
	return nil
}

var _ rbac.IdentityLookup = (*Service)(nil)
