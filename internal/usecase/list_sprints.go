package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

// ListSprintsInput contains the parameters for listing sprints.
// Fields are ordered to minimize memory padding.
type ListSprintsInput struct {
	ProjectID string              // Project to list (required)
	Status    domain.SprintStatus // Filter by status (empty = all)
	Search    string              // Case-insensitive name substring
	Actor     string              // Acting user (required)
	Page      int                 // 1-based page number (0 = first page)
	Limit     int                 // Page size, 1-100 (0 = default)
}

// ListSprintsOutput contains one page of sprints.
type ListSprintsOutput struct {
	Sprints    []*domain.Sprint
	Pagination shared.Pagination
}

// ListSprints is the use case for listing the sprints of a project.
// Pages are cached per query until a sprint of the project changes.
type ListSprints struct {
	tx    *Transactor
	cache domain.Cache
	ttl   time.Duration
}

// NewListSprints creates a new ListSprints use case.
func NewListSprints(tx *Transactor, cache domain.Cache, ttl time.Duration) *ListSprints {
	return &ListSprints{
		tx:    tx,
		cache: cache,
		ttl:   ttl,
	}
}

// Execute returns the requested page, oldest sprint first.
func (uc *ListSprints) Execute(ctx context.Context, in ListSprintsInput) (*ListSprintsOutput, error) {
	if err := shared.ValidateID(in.ProjectID); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.IsValid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "is not a sprint status"}
	}
	page, err := shared.NewPage(in.Page, in.Limit)
	if err != nil {
		return nil, err
	}

	// Membership is checked on every call; only the page itself is cached.
	if err := uc.tx.View(ctx, func(tx domain.Tx) error {
		_, err := shared.Authorize(tx, in.ProjectID, in.Actor, shared.CanView)
		return err
	}); err != nil {
		return nil, err
	}

	filter := domain.SprintFilter{ProjectID: in.ProjectID, Status: in.Status, Search: in.Search}
	key := domain.ProjectSprintsKey(in.ProjectID, canonicalQuery(filter, page))

	v, err := uc.cache.GetOrCompute(ctx, key, uc.ttl, func(ctx context.Context) (any, error) {
		var out *ListSprintsOutput
		err := uc.tx.View(ctx, func(tx domain.Tx) error {
			sprints, err := tx.ListSprints(filter)
			if err != nil {
				return fmt.Errorf("list sprints: %w", err)
			}
			items, pagination := shared.Paginate(sprints, page)
			out = &ListSprintsOutput{Sprints: items, Pagination: pagination}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	cached := v.(*ListSprintsOutput)
	sprints := make([]*domain.Sprint, len(cached.Sprints))
	for i, s := range cached.Sprints {
		sprints[i] = s.Clone()
	}
	return &ListSprintsOutput{Sprints: sprints, Pagination: cached.Pagination}, nil
}

// canonicalQuery encodes the filter and page in a stable form for hashing.
func canonicalQuery(f domain.SprintFilter, p shared.Page) string {
	var b strings.Builder
	b.WriteString("status=")
	b.WriteString(string(f.Status))
	b.WriteString("&search=")
	b.WriteString(strings.ToLower(f.Search))
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(p.Number))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(p.Limit))
	return b.String()
}
