package ports

import "go.trai.ch/forge/internal/core/domain"

// ProjectLoader reads a user-authored project description.
//
//go:generate go run go.uber.org/mock/mockgen -source=project_loader.go -destination=mocks/mock_project_loader.go -package=mocks
type ProjectLoader interface {
	Load(path string) (*domain.Project, error)
}
