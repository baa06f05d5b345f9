package app

import (
	"context"

	"github.com/alexanderramin/planloom/internal/domain"
)

type CascadeCalculateUseCase interface {
	Calculate(ctx context.Context, req CascadeCalculateRequest) (*CascadeCalculateResponse, error)
}

type CascadeApplyUseCase interface {
	Apply(ctx context.Context, req CascadeApplyRequest) (*CascadeApplyResponse, error)
}

type MergeUseCase interface {
	Preview(ctx context.Context, req ScenarioMergeRequest) (*MergeResult, error)
	Merge(ctx context.Context, req ScenarioMergeRequest) (*MergeResult, error)
}

type ResolveConflictUseCase interface {
	ResolveConflict(ctx context.Context, conflictID string, res ConflictResolution, actor string) (*domain.MergeConflict, error)
}
