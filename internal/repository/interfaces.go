package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/planloom/internal/db"
	"github.com/alexanderramin/planloom/internal/domain"
)

type ScenarioRepo interface {
	Create(ctx context.Context, s *domain.Scenario) error
	GetByID(ctx context.Context, id string) (*domain.Scenario, error)
	GetBaseline(ctx context.Context) (*domain.Scenario, error)
	List(ctx context.Context, includeInactive bool) ([]*domain.Scenario, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Scenario, error)
	UpdateStatus(ctx context.Context, id string, status domain.ScenarioStatus) error
}

type PersonRepo interface {
	Create(ctx context.Context, p *domain.Person) error
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	List(ctx context.Context) ([]*domain.Person, error)
}

type PhaseRepo interface {
	Create(ctx context.Context, p *domain.Phase) error
	GetByID(ctx context.Context, id string) (*domain.Phase, error)
	GetByName(ctx context.Context, name string) (*domain.Phase, error)
	List(ctx context.Context) ([]*domain.Phase, error)
	NextSortOrder(ctx context.Context) (int, error)
}

// EntityStore is the persistence surface of one overlaid entity kind: the
// baseline rows plus every scenario's delta rows.
type EntityStore[T any] interface {
	ListBase(ctx context.Context) ([]T, error)
	GetBase(ctx context.Context, id string) (T, error)
	InsertBase(ctx context.Context, e T) error
	UpdateBase(ctx context.Context, e T) error
	DeleteBase(ctx context.Context, id string) error

	ListDeltas(ctx context.Context, scenarioID string) ([]domain.Delta[T], error)
	GetDelta(ctx context.Context, scenarioID, entityID string) (domain.Delta[T], error)
	SaveDelta(ctx context.Context, d domain.Delta[T]) error
	DeleteDelta(ctx context.Context, scenarioID, entityID string) error
	DeleteScenarioDeltas(ctx context.Context, scenarioID string) error
}

type DependencyRepo interface {
	Create(ctx context.Context, d *domain.Dependency) error
	GetByID(ctx context.Context, id string) (*domain.Dependency, error)
	Update(ctx context.Context, d *domain.Dependency) error
	Delete(ctx context.Context, id string) error
	DeleteByScenario(ctx context.Context, scenarioID string) error
	ListByScenarios(ctx context.Context, scenarioIDs []string) ([]domain.Dependency, error)
}

type SnapshotRepo interface {
	Save(ctx context.Context, scenarioID string, entityType domain.EntityType, payload []byte, takenAt time.Time) error
	Get(ctx context.Context, scenarioID string, entityType domain.EntityType) ([]byte, error)
}

type ConflictRepo interface {
	Save(ctx context.Context, c *domain.MergeConflict) error
	GetByID(ctx context.Context, id string) (*domain.MergeConflict, error)
	ListByPair(ctx context.Context, sourceID, targetID string) ([]*domain.MergeConflict, error)
	Resolve(ctx context.Context, id string, res domain.Resolution, by string, at time.Time) error
	DeleteStale(ctx context.Context, sourceID, targetID string, keep map[string]bool) error
}

type LockRepo interface {
	TryAcquire(ctx context.Context, scenarioID, operation, token string, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scenarioID, token string) error
	Get(ctx context.Context, scenarioID string) (*ScenarioLock, error)
}

type ChangeLogRepo interface {
	Append(ctx context.Context, e domain.ChangeEntry) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ChangeEntry, error)
}

// Repos bundles every repository bound to one connection or transaction.
type Repos struct {
	Scenarios      ScenarioRepo
	People         PersonRepo
	Phases         PhaseRepo
	Projects       EntityStore[domain.Project]
	PhaseTimelines EntityStore[domain.PhaseTimeline]
	Assignments    EntityStore[domain.Assignment]
	Dependencies   DependencyRepo
	Snapshots      SnapshotRepo
	Conflicts      ConflictRepo
	Locks          LockRepo
	ChangeLog      ChangeLogRepo
}

// NewRepos binds the SQLite implementations to conn.
func NewRepos(conn db.DBTX) *Repos {
	return &Repos{
		Scenarios:      NewSQLiteScenarioRepo(conn),
		People:         NewSQLitePersonRepo(conn),
		Phases:         NewSQLitePhaseRepo(conn),
		Projects:       NewSQLiteProjectStore(conn),
		PhaseTimelines: NewSQLitePhaseTimelineStore(conn),
		Assignments:    NewSQLiteAssignmentStore(conn),
		Dependencies:   NewSQLiteDependencyRepo(conn),
		Snapshots:      NewSQLiteSnapshotRepo(conn),
		Conflicts:      NewSQLiteConflictRepo(conn),
		Locks:          NewSQLiteLockRepo(conn),
		ChangeLog:      NewSQLiteChangeLogRepo(conn),
	}
}
