package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/cache"
	ierr "github.com/warebill/warebill/internal/errors"
)

type ProjectService interface {
	CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	GetProject(ctx context.Context, id string) (*dto.ProjectResponse, error)
	ListProjects(ctx context.Context) (*dto.ListProjectsResponse, error)
	UpdateProject(ctx context.Context, id string, req dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
}

type projectService struct {
	ServiceParams
}

func NewProjectService(params ServiceParams) ProjectService {
	return &projectService{
		ServiceParams: params,
	}
}

func (s *projectService) CreateProject(ctx context.Context, req dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	proj := req.ToProject(ctx)
	if err := proj.Validate(); err != nil {
		return nil, err
	}

	if err := s.ProjectRepo.Create(ctx, proj); err != nil {
		return nil, err
	}

	return &dto.ProjectResponse{Project: proj}, nil
}

func (s *projectService) GetProject(ctx context.Context, id string) (*dto.ProjectResponse, error) {
	proj, err := s.ProjectRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ProjectResponse{Project: proj}, nil
}

func (s *projectService) ListProjects(ctx context.Context) (*dto.ListProjectsResponse, error) {
	projects, err := s.ProjectRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, &dto.ProjectResponse{Project: p})
	}

	return &dto.ListProjectsResponse{
		Items:      items,
		Pagination: newFullListPagination(len(items)),
	}, nil
}

func (s *projectService) UpdateProject(ctx context.Context, id string, req dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	proj, err := s.ProjectRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		proj.Name = *req.Name
	}
	if req.CustomerName != nil {
		proj.CustomerName = *req.CustomerName
	}
	if req.TaxRate != nil {
		rate, err := decimal.NewFromString(*req.TaxRate)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Tax rate must be a decimal fraction, e.g. 0.10").
				Mark(ierr.ErrValidation)
		}
		proj.TaxRate = rate
	}

	if err := proj.Validate(); err != nil {
		return nil, err
	}

	proj.Touch(ctx)
	if err := s.ProjectRepo.Update(ctx, proj); err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixProject, proj.ID))

	return &dto.ProjectResponse{Project: proj}, nil
}
