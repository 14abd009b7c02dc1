package project

import (
	"context"
)

// Repository defines the interface for project persistence operations
type Repository interface {
	// Create creates a new project
	Create(ctx context.Context, project *Project) error

	// Get retrieves a project by ID
	Get(ctx context.Context, id string) (*Project, error)

	// Update updates an existing project
	Update(ctx context.Context, project *Project) error

	// List retrieves all published projects
	List(ctx context.Context) ([]*Project, error)
}
