package users

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	core "github.com/naguara/naguara-pos/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u User, hash string) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	SetPassword(ctx context.Context, id int64, hash string) error
}

// AuditPort records account changes.
type AuditPort interface {
	Record(ctx context.Context, log core.AuditLog) error
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,40}$`)

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cost   int
	logger *slog.Logger
}

// NewService builds Service instance. cost is the bcrypt cost; zero selects the default.
func NewService(repo RepositoryPort, audit AuditPort, cost int, logger *slog.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cost: cost, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser validates and stores a new account with a bcrypt hash.
func (s *Service) CreateUser(ctx context.Context, actorID int64, req CreateRequest) (User, error) {
	u := User{
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		FullName: core.PersonName(req.FullName),
		Role:     strings.ToLower(strings.TrimSpace(req.Role)),
		IsActive: true,
	}
	if !usernamePattern.MatchString(u.Username) {
		return User{}, ErrInvalidUsername
	}
	if u.FullName == "" {
		return User{}, core.Validation("el nombre completo es obligatorio")
	}
	if !validRole(u.Role) {
		return User{}, ErrInvalidRole
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return User{}, err
	}
	created, err := s.repo.CreateUser(ctx, u, hash)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.create", created.ID, map[string]any{"username": created.Username, "role": created.Role})
	return created, nil
}

// UpdateUser changes name, role and active flag. Users cannot deactivate themselves.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, req UpdateRequest) (User, error) {
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	current.FullName = core.PersonName(req.FullName)
	current.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}
	if current.FullName == "" {
		return User{}, core.Validation("el nombre completo es obligatorio")
	}
	if !validRole(current.Role) {
		return User{}, ErrInvalidRole
	}
	if id == actorID && !current.IsActive {
		return User{}, ErrSelfDeactivation
	}
	updated, err := s.repo.UpdateUser(ctx, current)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.update", id, map[string]any{"role": updated.Role, "active": updated.IsActive})
	return updated, nil
}

// ResetPassword replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, actorID, id int64, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, hash); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.password_reset", id, nil)
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < 8 {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func validRole(role string) bool {
	for _, r := range core.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, core.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("user audit", slog.String("action", action), slog.Any("error", err))
	}
}
