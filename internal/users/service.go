package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/notewave/notewave/internal/models"
	"github.com/notewave/notewave/pkg/logger"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: name and a valid email are required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: string(hash)})
}

// Login verifies credentials and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProvisionGuest creates a guest account for an identifier that is not a
// known user id. This is the one deliberate entry point for implicit
// account creation; note operations call it via EnsureEditor instead of
// inventing users inline.
func (s *Service) ProvisionGuest(ctx context.Context, ident string) (*models.User, error) {
	name := ident
	if rest, ok := strings.CutPrefix(ident, "user_"); ok && rest != "" {
		name = "User " + rest
	}
	u, err := s.repo.Create(ctx, &models.User{
		ID:    ident,
		Name:  name,
		Email: "user" + ident + "@guest.invalid",
		Guest: true,
	})
	if err == nil {
		logger.Infof("provisioned guest identity %s", ident)
	}
	return u, err
}

// EnsureEditor resolves an editor identifier to a canonical user id,
// provisioning a guest when the id is unknown.
func (s *Service) EnsureEditor(ctx context.Context, editorID string) (string, error) {
	editorID = strings.TrimSpace(editorID)
	if editorID == "" {
		return "", fmt.Errorf("%w: empty editor id", ErrInvalidInput)
	}
	u, err := s.repo.GetByID(ctx, editorID)
	if err != nil {
		return "", err
	}
	if u != nil {
		return u.ID, nil
	}
	g, err := s.ProvisionGuest(ctx, editorID)
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

// EnsureByEmail resolves an email to a user id, provisioning an account named
// from the email local part when no user exists (invite of a stranger).
func (s *Service) EnsureByEmail(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u != nil {
		return u.ID, nil
	}
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	created, err := s.repo.Create(ctx, &models.User{Name: name, Email: email, Guest: true})
	if err != nil {
		return "", err
	}
	logger.Infof("provisioned invited user %s (%s)", created.ID, email)
	return created.ID, nil
}
