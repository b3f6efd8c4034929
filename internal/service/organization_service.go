package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/repository"
	apperrors "github.com/spec-kit/member-portal/pkg/util/errorutil"
)

// OrganizationService manages organizations, their roles and who holds them.
type OrganizationService struct {
	orgs   repository.OrganizationRepository
	roles  repository.RoleRepository
	users  repository.UserRepository
	logger *zap.Logger
}

// NewOrganizationService builds the service.
func NewOrganizationService(orgs repository.OrganizationRepository, roles repository.RoleRepository, users repository.UserRepository, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{orgs: orgs, roles: roles, users: users, logger: logger}
}

// CreateOrganization creates an organization with the default Owner and
// Member roles and makes owner its Owner.
func (s *OrganizationService) CreateOrganization(ctx context.Context, owner *domain.User, name string) (*domain.Organization, error) {
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}

	org := &domain.Organization{
		Name: name,
		Roles: []domain.Role{
			{Name: domain.RoleOwner},
			{Name: domain.RoleMember},
		},
	}
	if err := s.orgs.CreateWithOwner(ctx, org, owner.ID, domain.RoleOwner); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	org.Members = []domain.Member{{
		UserID: owner.ID,
		Name:   owner.Name,
		Email:  owner.Email,
		Roles:  []string{domain.RoleOwner},
	}}

	s.logger.Info("organization created", zap.String("organization_id", org.ID), zap.String("owner_id", owner.ID))
	return org, nil
}

// GetForMember returns the organization with its roles and members. Callers
// without a role in it get not-found so existence is not disclosed.
func (s *OrganizationService) GetForMember(ctx context.Context, user *domain.User, organizationID string) (*domain.Organization, error) {
	if _, err := s.requireRole(ctx, user, organizationID); err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, organizationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, organizationNotFound(organizationID)
	}
	if err != nil {
		return nil, err
	}

	if org.Roles, err = s.roles.ListByOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	if org.Members, err = s.roles.Members(ctx, organizationID); err != nil {
		return nil, err
	}
	return org, nil
}

// ListForUser lists the organizations the user holds a role in.
func (s *OrganizationService) ListForUser(ctx context.Context, user *domain.User) ([]domain.Organization, error) {
	return s.orgs.ListForUser(ctx, user.ID)
}

// RenameOrganization changes the organization name. Only owners may do this.
func (s *OrganizationService) RenameOrganization(ctx context.Context, user *domain.User, organizationID, name string) (*domain.Organization, error) {
	if err := s.requireOwner(ctx, user, organizationID); err != nil {
		return nil, err
	}
	name, err := validateName("name", name)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, organizationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, organizationNotFound(organizationID)
	}
	if err != nil {
		return nil, err
	}
	org.Name = name
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("rename organization: %w", err)
	}
	return org, nil
}

// AddMember grants the account registered under email a role in the
// organization, Member when roleName is blank. Only owners may do this.
func (s *OrganizationService) AddMember(ctx context.Context, user *domain.User, organizationID, email, roleName string) (*domain.Member, error) {
	if err := s.requireOwner(ctx, user, organizationID); err != nil {
		return nil, err
	}
	email, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		roleName = domain.RoleMember
	}

	account, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if !account.Active() {
		return nil, apperrors.NewNotFound("account", map[string]any{"email": email})
	}

	role, err := s.roles.GetByName(ctx, organizationID, roleName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("role", map[string]any{"role": roleName})
	}
	if err != nil {
		return nil, err
	}
	if err := s.roles.Assign(ctx, account.ID, role.ID); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	held, err := s.roles.RolesInOrganization(ctx, account.ID, organizationID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("role assigned",
		zap.String("organization_id", organizationID),
		zap.String("user_id", account.ID),
		zap.String("role", role.Name),
		zap.String("granted_by", user.ID))
	return &domain.Member{UserID: account.ID, Name: account.Name, Email: account.Email, Roles: held}, nil
}

// CreateRole adds a role to an organization. Only owners may do this.
func (s *OrganizationService) CreateRole(ctx context.Context, user *domain.User, organizationID, name string) (*domain.Role, error) {
	if err := s.requireOwner(ctx, user, organizationID); err != nil {
		return nil, err
	}

	name, err := validateName("role", name)
	if err != nil {
		return nil, err
	}

	role := &domain.Role{OrganizationID: organizationID, Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.NewConflict("role already exists", map[string]any{"role": name})
		}
		return nil, err
	}
	return role, nil
}

func (s *OrganizationService) requireRole(ctx context.Context, user *domain.User, organizationID string) ([]string, error) {
	held, err := s.roles.RolesInOrganization(ctx, user.ID, organizationID)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return nil, organizationNotFound(organizationID)
	}
	return held, nil
}

func (s *OrganizationService) requireOwner(ctx context.Context, user *domain.User, organizationID string) error {
	held, err := s.requireRole(ctx, user, organizationID)
	if err != nil {
		return err
	}
	if !containsRole(held, domain.RoleOwner) {
		return apperrors.NewForbidden("only organization owners can manage the organization")
	}
	return nil
}

func organizationNotFound(id string) error {
	return apperrors.NewNotFound("organization", map[string]any{"id": id})
}

func containsRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
