package auditsample

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/countwise/countwise/internal/count"
	"github.com/countwise/countwise/internal/shared"
)

// StoredSample is a persisted audit sample with its selection parameters,
// kept so the selection can be reproduced and audited later.
type StoredSample struct {
	ID        int64
	RequestID int64
	Method    Method
	Params    map[string]any
	ItemIDs   []int64
	CreatedBy int64
	CreatedAt time.Time
}

// RepositoryPort abstracts persistence for audit samples.
type RepositoryPort interface {
	ListApprovedItemIDs(ctx context.Context, requestID int64) ([]int64, error)
	InsertSample(ctx context.Context, sample StoredSample) (int64, error)
	GetSample(ctx context.Context, id int64) (StoredSample, error)
	ListSamples(ctx context.Context, requestID int64) ([]StoredSample, error)
}

// Service selects and persists audit samples over approved items.
type Service struct {
	repo  RepositoryPort
	audit count.AuditPort
	rng   *rand.Rand
	now   func() time.Time
}

// NewService builds Service. rng may be nil; tests inject a seeded source
// for reproducible selections.
func NewService(repo RepositoryPort, audit count.AuditPort, rng *rand.Rand) *Service {
	return &Service{repo: repo, audit: audit, rng: rng, now: func() time.Time { return time.Now().UTC() }}
}

// CreateSampleInput describes one sampling run.
type CreateSampleInput struct {
	RequestID int64
	ManualIDs []int64
	Auto      *AutoSpec
	Actor     shared.Actor
}

// CreateSample draws a sample from the request's approved items and persists
// it. Only approved items are eligible; manual picks outside that set fail
// validation. An empty selection is legal and stored as such.
func (s *Service) CreateSample(ctx context.Context, input CreateSampleInput) (StoredSample, error) {
	if input.RequestID == 0 {
		return StoredSample{}, shared.NewValidationError("request_id", "required")
	}
	eligible, err := s.repo.ListApprovedItemIDs(ctx, input.RequestID)
	if err != nil {
		return StoredSample{}, err
	}
	sample, err := Select(eligible, input.ManualIDs, input.Auto, s.rng)
	if err != nil {
		return StoredSample{}, err
	}
	stored := StoredSample{
		RequestID: input.RequestID,
		Method:    sample.Method,
		Params:    sample.Params,
		ItemIDs:   sample.ItemIDs,
		CreatedBy: input.Actor.UserID,
		CreatedAt: s.now(),
	}
	id, err := s.repo.InsertSample(ctx, stored)
	if err != nil {
		return StoredSample{}, err
	}
	stored.ID = id
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.Actor.UserID,
			Action:   "AUDIT_SAMPLE_CREATE",
			Entity:   "audit_sample",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"request_id": input.RequestID, "method": string(sample.Method), "size": len(sample.ItemIDs)},
		})
	}
	return stored, nil
}

// GetSample loads one stored sample.
func (s *Service) GetSample(ctx context.Context, id int64) (StoredSample, error) {
	return s.repo.GetSample(ctx, id)
}

// ListSamples returns the samples recorded for a request, newest first.
func (s *Service) ListSamples(ctx context.Context, requestID int64) ([]StoredSample, error) {
	return s.repo.ListSamples(ctx, requestID)
}
