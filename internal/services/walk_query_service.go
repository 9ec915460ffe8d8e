package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/internal/repository"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
)

// UnknownUserName stands in for users the directory cannot resolve.
const UnknownUserName = "Unknown User"

// Directory resolves user ids to display data. found is false for unknown or
// deleted users.
type Directory interface {
	Lookup(ctx context.Context, userID string) (user models.PublicUser, found bool, err error)
}

// WalkQueryService builds the read-only views over walk requests.
type WalkQueryService struct {
	store     WalkStore
	directory Directory
}

// NewWalkQueryService creates a new WalkQueryService.
func NewWalkQueryService(store WalkStore, directory Directory) *WalkQueryService {
	return &WalkQueryService{store: store, directory: directory}
}

// ListAvailable returns Active requests posted by anyone but the viewer, newest first.
func (s *WalkQueryService) ListAvailable(ctx context.Context, viewerID string) ([]models.WalkRequestView, error) {
	return s.list(ctx, "available", models.WalkFilter{
		Statuses:           []models.WalkStatus{models.StatusActive},
		ExcludeRequesterID: viewerID,
	}, byCreatedAt)
}

// ListMine returns every request the viewer posted, newest first.
func (s *WalkQueryService) ListMine(ctx context.Context, viewerID string) ([]models.WalkRequestView, error) {
	return s.list(ctx, "mine", models.WalkFilter{RequesterID: viewerID}, byCreatedAt)
}

// ListMyActive returns the viewer's requests that are still open or accepted.
func (s *WalkQueryService) ListMyActive(ctx context.Context, viewerID string) ([]models.WalkRequestView, error) {
	return s.list(ctx, "my_active", models.WalkFilter{
		RequesterID: viewerID,
		Statuses:    []models.WalkStatus{models.StatusActive, models.StatusAccepted},
	}, byCreatedAt)
}

// ListAcceptedByMe returns requests the viewer accepted and has not finished,
// most recently accepted first.
func (s *WalkQueryService) ListAcceptedByMe(ctx context.Context, viewerID string) ([]models.WalkRequestView, error) {
	return s.list(ctx, "accepted_by_me", models.WalkFilter{
		CompanionID: viewerID,
		Statuses:    []models.WalkStatus{models.StatusAccepted},
	}, byAcceptedAt)
}

// ListHistory returns finished requests the viewer took part in.
func (s *WalkQueryService) ListHistory(ctx context.Context, viewerID string) ([]models.WalkRequestView, error) {
	return s.list(ctx, "history", models.WalkFilter{
		ParticipantID: viewerID,
		Statuses:      []models.WalkStatus{models.StatusCompleted, models.StatusCancelled},
	}, byLastChange)
}

// GetRequest returns a single enriched request.
func (s *WalkQueryService) GetRequest(ctx context.Context, requestID string) (*models.WalkRequestView, error) {
	req, err := s.store.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get walk request: %w", err)
	}
	views := s.enrich(ctx, []models.WalkRequest{*req})
	return &views[0], nil
}

func (s *WalkQueryService) list(ctx context.Context, view string, filter models.WalkFilter, key func(*models.WalkRequest) time.Time) ([]models.WalkRequestView, error) {
	requests, err := s.store.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("view", view).Error("Failed to list walk requests")
		return nil, fmt.Errorf("failed to list %s walk requests: %w", view, err)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		ki, kj := key(&requests[i]), key(&requests[j])
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return requests[i].ID < requests[j].ID
	})
	return s.enrich(ctx, requests), nil
}

// enrich joins display data. Directory misses and errors become the
// placeholder name and never fail the view.
func (s *WalkQueryService) enrich(ctx context.Context, requests []models.WalkRequest) []models.WalkRequestView {
	seen := make(map[string]models.PublicUser)
	resolve := func(userID string) models.PublicUser {
		if u, ok := seen[userID]; ok {
			return u
		}
		u, found, err := s.directory.Lookup(ctx, userID)
		if err != nil {
			logger.Log.WithError(err).WithField("user_id", userID).Warn("Directory lookup failed")
		}
		if err != nil || !found {
			u = models.PublicUser{ID: userID, DisplayName: UnknownUserName}
		}
		seen[userID] = u
		return u
	}

	views := make([]models.WalkRequestView, 0, len(requests))
	for _, req := range requests {
		requester := resolve(req.RequesterID)
		v := models.WalkRequestView{
			WalkRequest:      req,
			RequesterName:    requester.DisplayName,
			RequesterContact: requester.Contact,
		}
		if req.CompanionID != "" {
			companion := resolve(req.CompanionID)
			v.CompanionName = companion.DisplayName
			v.CompanionContact = companion.Contact
		}
		views = append(views, v)
	}
	return views
}

func byCreatedAt(r *models.WalkRequest) time.Time { return r.CreatedAt }

func byAcceptedAt(r *models.WalkRequest) time.Time {
	if r.AcceptedAt != nil {
		return *r.AcceptedAt
	}
	return r.UpdatedAt
}

func byLastChange(r *models.WalkRequest) time.Time {
	switch {
	case !r.UpdatedAt.IsZero():
		return r.UpdatedAt
	case r.CancelledAt != nil:
		return *r.CancelledAt
	default:
		return r.CreatedAt
	}
}
