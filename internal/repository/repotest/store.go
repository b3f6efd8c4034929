// Package repotest provides in-memory repositories for tests. They mirror
// the Postgres implementations closely enough to exercise services and
// handlers without a database.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/member-portal/internal/domain"
	"github.com/spec-kit/member-portal/internal/repository"
)

const uniqueViolation = "23505"

// Store backs every repository so joins behave like Postgres.
type Store struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	orgs      map[string]*domain.Organization
	roles     map[string]*domain.Role
	userRoles map[string]map[string]bool // user id -> role id set
	resets    map[string]*repository.PasswordResetToken
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		orgs:      make(map[string]*domain.Organization),
		roles:     make(map[string]*domain.Role),
		userRoles: make(map[string]map[string]bool),
		resets:    make(map[string]*repository.PasswordResetToken),
	}
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: uniqueViolation}
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[user.ID]
	if !ok || stored.Deleted {
		return pgx.ErrNoRows
	}
	stored.Name, stored.Email, stored.PasswordHash = user.Name, user.Email, user.PasswordHash
	stored.UpdatedAt = time.Now()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) SoftDelete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Deleted {
		return pgx.ErrNoRows
	}
	u.Deleted = true
	delete(r.s.userRoles, id)
	return nil
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	cp := *token
	r.s.resets[token.Token] = &cp
	return nil
}

func (r resetRepo) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resets[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r resetRepo) Redeem(_ context.Context, tokenID, userID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var token *repository.PasswordResetToken
	for _, t := range r.s.resets {
		if t.ID == tokenID && t.UserID == userID && t.UsedAt == nil {
			token = t
		}
	}
	user, ok := r.s.users[userID]
	if token == nil || !ok || user.Deleted {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	user.PasswordHash = passwordHash
	user.UpdatedAt = now
	return nil
}

type orgRepo struct{ s *Store }

func (r orgRepo) CreateWithOwner(_ context.Context, org *domain.Organization, ownerID, ownerRole string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org.ID = uuid.NewString()
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	r.s.orgs[org.ID] = &domain.Organization{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt, UpdatedAt: org.UpdatedAt}
	for i := range org.Roles {
		role := &org.Roles[i]
		role.ID = uuid.NewString()
		role.OrganizationID = org.ID
		cp := *role
		r.s.roles[role.ID] = &cp
		if role.Name == ownerRole {
			r.s.assign(ownerID, role.ID)
		}
	}
	return nil
}

func (r orgRepo) Update(_ context.Context, org *domain.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.orgs[org.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = org.Name
	return nil
}

func (r orgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (r orgRepo) ListForUser(_ context.Context, userID string) ([]domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	var result []domain.Organization
	for roleID := range r.s.userRoles[userID] {
		orgID := r.s.roles[roleID].OrganizationID
		if seen[orgID] {
			continue
		}
		seen[orgID] = true
		result = append(result, *r.s.orgs[orgID])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type roleRepo struct{ s *Store }

func (r roleRepo) Create(_ context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.roles {
		if existing.OrganizationID == role.OrganizationID && existing.Name == role.Name {
			return &pgconn.PgError{Code: uniqueViolation}
		}
	}
	role.ID = uuid.NewString()
	cp := *role
	r.s.roles[role.ID] = &cp
	return nil
}

func (r roleRepo) GetByName(_ context.Context, organizationID, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.OrganizationID == organizationID && role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r roleRepo) ListByOrganization(_ context.Context, organizationID string) ([]domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Role
	for _, role := range r.s.roles {
		if role.OrganizationID == organizationID {
			result = append(result, *role)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r roleRepo) Assign(_ context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assign(userID, roleID)
	return nil
}

func (r roleRepo) RolesInOrganization(_ context.Context, userID, organizationID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var names []string
	for roleID := range r.s.userRoles[userID] {
		if role := r.s.roles[roleID]; role.OrganizationID == organizationID {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r roleRepo) Memberships(_ context.Context, userID string) ([]domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Membership
	for roleID := range r.s.userRoles[userID] {
		role := r.s.roles[roleID]
		result = append(result, domain.Membership{
			OrganizationID:   role.OrganizationID,
			OrganizationName: r.s.orgs[role.OrganizationID].Name,
			RoleID:           role.ID,
			RoleName:         role.Name,
		})
	}
	return result, nil
}

func (r roleRepo) Members(_ context.Context, organizationID string) ([]domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Member
	for userID, roleIDs := range r.s.userRoles {
		u := r.s.users[userID]
		if u == nil || u.Deleted {
			continue
		}
		var names []string
		for roleID := range roleIDs {
			if role := r.s.roles[roleID]; role.OrganizationID == organizationID {
				names = append(names, role.Name)
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		result = append(result, domain.Member{UserID: u.ID, Name: u.Name, Email: u.Email, Roles: names})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// PasswordResets returns the reset token repository view of the store.
func (s *Store) PasswordResets() repository.PasswordResetRepository { return resetRepo{s} }

// Organizations returns the organization repository view of the store.
func (s *Store) Organizations() repository.OrganizationRepository { return orgRepo{s} }

// Roles returns the role repository view of the store.
func (s *Store) Roles() repository.RoleRepository { return roleRepo{s} }

func (s *Store) assign(userID, roleID string) {
	if s.userRoles[userID] == nil {
		s.userRoles[userID] = make(map[string]bool)
	}
	s.userRoles[userID][roleID] = true
}

