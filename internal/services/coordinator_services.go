package services

import (
	"context"
	"errors"
	"strings"

	"github.com/marmeebeau/capstone-final/internal/model"
	"github.com/marmeebeau/capstone-final/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// CoordinatorStore is the persistence contract the service depends on.
// *repository.CoordinatorRepository implements it.
type CoordinatorStore interface {
	Create(ctx context.Context, c *model.Coordinator) (*model.Coordinator, error)
	FindOne(ctx context.Context, id int64) (*model.Coordinator, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.Coordinator, error)
	FindConflict(ctx context.Context, username, email string, excludeID int64) (*model.Coordinator, error)
	FindMany(ctx context.Context) ([]model.Coordinator, error)
	Update(ctx context.Context, c *model.Coordinator) (*model.Coordinator, error)
}

// Mailer sends transactional mail. Optional; a nil Mailer disables sending.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, firstName string) error
}

type CoordinatorService struct {
	Store      CoordinatorStore
	Validator  EmailValidator
	Mailer     Mailer
	bcryptCost int
}

func NewCoordinatorService(store CoordinatorStore, validator EmailValidator, mailer Mailer, bcryptCost int) *CoordinatorService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &CoordinatorService{Store: store, Validator: validator, Mailer: mailer, bcryptCost: bcryptCost}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Contact   string
	Address   string
	Role      string
}

// Register validates the input, checks username/email uniqueness, hashes the
// password, and persists the account. Role defaults to Coordinator when absent.
func (s *CoordinatorService) Register(ctx context.Context, in RegisterInput) (*model.Coordinator, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.FirstName == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, wrap(ErrValidation, "please provide all required fields")
	}
	if err := s.Validator.Validate(ctx, in.Email); err != nil {
		return nil, wrap(ErrValidation, "%v", err)
	}
	role := in.Role
	if role == "" {
		role = model.RoleCoordinator
	}
	if !model.ValidRole(role) {
		return nil, wrap(ErrValidation, "unknown role %q", in.Role)
	}

	if err := s.checkConflict(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	created, err := s.Store.Create(ctx, &model.Coordinator{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     strings.TrimSpace(in.LastName),
		Contact:      strings.TrimSpace(in.Contact),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	// best-effort; a mail failure must not fail the registration
	if s.Mailer != nil {
		_ = s.Mailer.SendWelcomeEmail(ctx, created.Email, created.FirstName)
	}

	created.PasswordHash = ""
	return created, nil
}

// Login verifies identifier+password and returns the account with the hash
// stripped. Both the unknown-identifier and the bad-password cases come back
// as ErrAuthentication so the boundary can answer them identically.
func (s *CoordinatorService) Login(ctx context.Context, identifier, password string) (*model.Coordinator, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, wrap(ErrValidation, "missing identifier or password")
	}

	c, err := s.Store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrCoordinatorNotFound) {
			return nil, wrap(ErrAuthentication, "no existing user found")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, wrap(ErrAuthentication, "incorrect password")
	}

	c.PasswordHash = ""
	return c, nil
}

// Get fetches one coordinator with the hash stripped.
func (s *CoordinatorService) Get(ctx context.Context, id int64) (*model.Coordinator, error) {
	c, err := s.Store.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCoordinatorNotFound) {
			return nil, wrap(ErrNotFound, "coordinator %d not found", id)
		}
		return nil, err
	}
	c.PasswordHash = ""
	return c, nil
}

// List returns every coordinator, hashes stripped. Admin gating happens at the
// route, against the caller's stored role.
func (s *CoordinatorService) List(ctx context.Context) ([]model.Coordinator, error) {
	list, err := s.Store.FindMany(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].PasswordHash = ""
	}
	return list, nil
}

// RoleOf resolves the stored role for an id. The admin route gate uses this so
// authorization always reflects current state, not token contents.
func (s *CoordinatorService) RoleOf(ctx context.Context, id int64) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Role, nil
}

// VerifyPassword reports whether password matches the stored hash. Read-only;
// used by clients to pre-validate before submitting a profile update.
func (s *CoordinatorService) VerifyPassword(ctx context.Context, id int64, password string) (bool, error) {
	c, err := s.Store.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCoordinatorNotFound) {
			return false, wrap(ErrNotFound, "coordinator %d not found", id)
		}
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil, nil
}

type UpdateInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Contact   string
	Address   string
	Role      string

	// password rotation; both empty means no rotation
	CurrentPassword string
	NewPassword     string
}

// Update rewrites the target's profile. Role changes are applied only when the
// caller is Admin; anyone else's submitted role is silently dropped. Changing
// the password requires the current one and a genuinely new one.
func (s *CoordinatorService) Update(ctx context.Context, targetID int64, in UpdateInput, caller *model.Coordinator) (*model.Coordinator, error) {
	existing, err := s.Store.FindOne(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrCoordinatorNotFound) {
			return nil, wrap(ErrNotFound, "coordinator %d not found", targetID)
		}
		return nil, err
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FirstName == "" || in.Email == "" {
		return nil, wrap(ErrValidation, "first name and email are required")
	}
	if in.Username == "" {
		in.Username = existing.Username
	}

	if in.Username != existing.Username || in.Email != existing.Email {
		if err := s.checkConflict(ctx, in.Username, in.Email, targetID); err != nil {
			return nil, err
		}
	}

	role := existing.Role
	if in.Role != "" && caller != nil && caller.IsAdmin() {
		if !model.ValidRole(in.Role) {
			return nil, wrap(ErrValidation, "unknown role %q", in.Role)
		}
		role = in.Role
	}

	hash := existing.PasswordHash
	if in.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(in.CurrentPassword)); err != nil {
			return nil, wrap(ErrAuthentication, "incorrect password")
		}
		if in.NewPassword == in.CurrentPassword {
			return nil, wrap(ErrValidation, "new password must differ from the current one")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		hash = string(h)
	}

	existing.Username = in.Username
	existing.Email = in.Email
	existing.FirstName = in.FirstName
	existing.LastName = strings.TrimSpace(in.LastName)
	existing.Contact = strings.TrimSpace(in.Contact)
	existing.Address = strings.TrimSpace(in.Address)
	existing.Role = role
	existing.PasswordHash = hash

	updated, err := s.Store.Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	updated.PasswordHash = ""
	return updated, nil
}

// checkConflict reproduces the original per-field duplicate messages.
func (s *CoordinatorService) checkConflict(ctx context.Context, username, email string, excludeID int64) error {
	existing, err := s.Store.FindConflict(ctx, username, email, excludeID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	switch {
	case existing.Email == email && existing.Username == username:
		return wrap(ErrConflict, "account already registered")
	case existing.Email == email:
		return wrap(ErrConflict, "email is already registered")
	default:
		return wrap(ErrConflict, "username is already taken")
	}
}
