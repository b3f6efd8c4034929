package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/member-portal/internal/domain"
)

// OrganizationRepository manages organization persistence.
type OrganizationRepository interface {
	// CreateWithOwner stores the organization together with its default
	// roles and grants ownerRole to ownerID, all in one transaction.
	CreateWithOwner(ctx context.Context, org *domain.Organization, ownerID, ownerRole string) error
	Update(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository builds the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) CreateWithOwner(ctx context.Context, org *domain.Organization, ownerID, ownerRole string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertOrg = `
            INSERT INTO organizations (name)
            VALUES ($1)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertOrg, org.Name).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return err
		}

		const insertRole = `
            INSERT INTO roles (organization_id, name)
            VALUES ($1,$2)
            RETURNING id, created_at, updated_at`
		for i := range org.Roles {
			role := &org.Roles[i]
			role.OrganizationID = org.ID
			if err := tx.QueryRow(ctx, insertRole, org.ID, role.Name).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt); err != nil {
				return err
			}
			if role.Name != ownerRole {
				continue
			}
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1,$2)`, ownerID, role.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *organizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	const query = `
        UPDATE organizations SET name=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, org.Name, org.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT id, name, created_at, updated_at
        FROM organizations WHERE id=$1`
	var org domain.Organization
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Organization, error) {
	const query = `
        SELECT DISTINCT o.id, o.name, o.created_at, o.updated_at
        FROM organizations o
        JOIN roles r ON r.organization_id = o.id
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id=$1
        ORDER BY o.name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}
