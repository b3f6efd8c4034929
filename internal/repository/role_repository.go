package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/member-portal/internal/domain"
)

// RoleRepository manages organization roles and their assignments.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByName(ctx context.Context, organizationID, name string) (*domain.Role, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Role, error)
	Assign(ctx context.Context, userID, roleID string) error
	RolesInOrganization(ctx context.Context, userID, organizationID string) ([]string, error)
	Memberships(ctx context.Context, userID string) ([]domain.Membership, error)
	Members(ctx context.Context, organizationID string) ([]domain.Member, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository constructs repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (organization_id, name)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		role.OrganizationID,
		role.Name,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

func (r *roleRepository) GetByName(ctx context.Context, organizationID, name string) (*domain.Role, error) {
	if !validID(organizationID) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT id, organization_id, name, created_at, updated_at
        FROM roles WHERE organization_id=$1 AND name=$2`
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, organizationID, name).Scan(
		&role.ID,
		&role.OrganizationID,
		&role.Name,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.Role, error) {
	const query = `
        SELECT id, organization_id, name, created_at, updated_at
        FROM roles WHERE organization_id=$1
        ORDER BY name`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r *roleRepository) Assign(ctx context.Context, userID, roleID string) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id)
        VALUES ($1,$2)
        ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, roleID)
	return err
}

func (r *roleRepository) RolesInOrganization(ctx context.Context, userID, organizationID string) ([]string, error) {
	if !validID(userID) || !validID(organizationID) {
		return nil, nil
	}
	const query = `
        SELECT r.name
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id=$1 AND r.organization_id=$2
        ORDER BY r.name`
	rows, err := r.pool.Query(ctx, query, userID, organizationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *roleRepository) Memberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	const query = `
        SELECT o.id, o.name, r.id, r.name
        FROM user_roles ur
        JOIN roles r ON r.id = ur.role_id
        JOIN organizations o ON o.id = r.organization_id
        WHERE ur.user_id=$1
        ORDER BY o.name, r.name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.OrganizationID, &m.OrganizationName, &m.RoleID, &m.RoleName); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *roleRepository) Members(ctx context.Context, organizationID string) ([]domain.Member, error) {
	const query = `
        SELECT u.id, u.name, u.email, array_agg(r.name ORDER BY r.name)
        FROM user_roles ur
        JOIN roles r ON r.id = ur.role_id
        JOIN users u ON u.id = ur.user_id
        WHERE r.organization_id=$1 AND u.deleted=FALSE
        GROUP BY u.id, u.name, u.email
        ORDER BY u.name`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Roles); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
