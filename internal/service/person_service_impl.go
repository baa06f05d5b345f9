package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
	"github.com/alexanderramin/planloom/internal/repository"
)

type personService struct {
	core
}

func NewPersonService(repos *repository.Repos, uow db.UnitOfWork, opts ...Option) PersonService {
	return &personService{core: newCore(repos, uow, opts)}
}

func (s *personService) Create(ctx context.Context, p *domain.Person) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Validation("person name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = s.now()
	return domain.Persistence("creating person", s.repos.People.Create(ctx, p))
}

func (s *personService) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	p, err := s.repos.People.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "person", id)
	}
	return p, nil
}

func (s *personService) List(ctx context.Context) ([]*domain.Person, error) {
	return s.repos.People.List(ctx)
}
