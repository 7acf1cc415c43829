package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"access-coordinator/src/db"
	"access-coordinator/src/models"
)

// ResourceRepository reads the static registry of controllable resources.
// The coordinator never writes this table.
type ResourceRepository struct {
	db *db.DB
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(database *db.DB) *ResourceRepository {
	return &ResourceRepository{
		db: database,
	}
}

// GetResource retrieves one resource by id.
func (r *ResourceRepository) GetResource(ctx context.Context, resourceID string) (*models.Resource, error) {
	query := `
		SELECT resource_id, name, allowed_roles
		FROM resources
		WHERE resource_id = $1
	`

	var (
		resource models.Resource
		roles    pq.StringArray
	)
	err := r.db.GetConnection().QueryRowContext(ctx, query, resourceID).Scan(
		&resource.ID,
		&resource.Name,
		&roles,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	resource.AllowedRoles = toRoles(roles)
	return &resource, nil
}

// ListForRole returns the resources the given role may view.
func (r *ResourceRepository) ListForRole(ctx context.Context, role models.Role) ([]models.Resource, error) {
	query := `
		SELECT resource_id, name, allowed_roles
		FROM resources
		ORDER BY resource_id
	`

	rows, err := r.db.GetConnection().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var (
			resource models.Resource
			roles    pq.StringArray
		)
		if err := rows.Scan(&resource.ID, &resource.Name, &roles); err != nil {
			return nil, fmt.Errorf("failed to scan resource row: %w", err)
		}
		resource.AllowedRoles = toRoles(roles)
		if resource.VisibleTo(role) {
			resources = append(resources, resource)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resource rows: %w", err)
	}
	return resources, nil
}

func toRoles(raw pq.StringArray) []models.Role {
	roles := make([]models.Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, models.Role(r))
	}
	return roles
}
