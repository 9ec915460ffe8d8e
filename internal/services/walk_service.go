package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dias221467/Walk_Companion/internal/metrics"
	"github.com/Dias221467/Walk_Companion/internal/models"
	"github.com/Dias221467/Walk_Companion/internal/repository"
	"github.com/Dias221467/Walk_Companion/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Field limits, in characters.
const (
	MaxLocationLen     = 200
	MaxFreeTextLen     = 500
	MaxContactLen      = 20
	MaxCancelReasonLen = 200
)

const (
	DefaultCancellationReason = "No reason provided"
	ExpiredCancellationReason = "Walk time has passed"
)

// WalkStore is the persistence contract of the lifecycle engine. Transition
// must check change.From and write in one atomic step, returning
// *repository.StatusMismatchError when the stored status differs.
type WalkStore interface {
	Create(ctx context.Context, req *models.WalkRequest) error
	Get(ctx context.Context, id string) (*models.WalkRequest, error)
	Transition(ctx context.Context, id string, change models.StatusChange) (*models.WalkRequest, error)
	Find(ctx context.Context, filter models.WalkFilter) ([]models.WalkRequest, error)
}

// WalkService is the lifecycle engine: the only component that creates or
// mutates walk requests.
type WalkService struct {
	store WalkStore
	now   func() time.Time
	newID func() string
}

// NewWalkService creates a new WalkService.
func NewWalkService(store WalkStore) *WalkService {
	return &WalkService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// CreateRequest validates details and stores a new Active request owned by requesterID.
func (s *WalkService) CreateRequest(ctx context.Context, requesterID string, details models.CreateWalkRequest) (*models.WalkRequest, error) {
	req, verr := buildRequest(requesterID, details)
	if verr != nil {
		logger.Log.WithField("requester_id", requesterID).WithError(verr).Warn("Rejected walk request creation")
		metrics.IncTransitionFailure("create", Kind(verr))
		return nil, verr
	}

	now := s.now()
	req.ID = s.newID()
	req.Status = models.StatusActive
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.store.Create(ctx, req); err != nil {
		logger.Log.WithError(err).Error("Service failed to create walk request")
		return nil, fmt.Errorf("failed to create walk request: %w", err)
	}

	metrics.IncRequestCreated()
	logger.Log.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"requester_id": requesterID,
	}).Info("Walk request created")
	return req, nil
}

// AcceptRequest makes actorID the companion of an Active request. Of many
// concurrent callers exactly one succeeds; the rest get a Conflict.
func (s *WalkService) AcceptRequest(ctx context.Context, requestID, actorID string) (*models.WalkRequest, error) {
	const op = "accept"
	req, err := s.load(ctx, op, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, s.fail(op, requestID, actorID, ValidationErrors{{Field: "actor_id", Message: "is required"}})
	}
	if req.RequesterID == actorID {
		return nil, s.fail(op, requestID, actorID, &TransitionError{
			RequestID: requestID,
			Current:   req.Status,
			Requested: models.StatusAccepted,
			Reason:    "requester cannot accept their own request",
		})
	}

	return s.transition(ctx, op, actorID, req, models.StatusChange{
		From:        models.StatusActive,
		To:          models.StatusAccepted,
		At:          s.now(),
		CompanionID: actorID,
	}, "already accepted or no longer available")
}

// CancelRequest cancels an Active request (requester only) or an Accepted one
// (requester or companion). An empty reason is replaced by a default.
// The write is conditional on the status read here, so a cancel that loses to a
// concurrent accept returns a Conflict naming Accepted and may be reissued.
func (s *WalkService) CancelRequest(ctx context.Context, requestID, actorID, reason, details string) (*models.WalkRequest, error) {
	const op = "cancel"
	req, err := s.load(ctx, op, requestID, actorID)
	if err != nil {
		return nil, err
	}
	// An Active request has no companion yet, so only the requester matches.
	if !req.IsParticipant(actorID) {
		return nil, s.fail(op, requestID, actorID, fmt.Errorf("%w: only the requester or companion can cancel", ErrForbidden))
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	return s.transition(ctx, op, actorID, req, models.StatusChange{
		From:                req.Status,
		To:                  models.StatusCancelled,
		At:                  s.now(),
		CancellationReason:  truncate(reason, MaxCancelReasonLen),
		CancellationDetails: truncate(strings.TrimSpace(details), MaxFreeTextLen),
	}, "request is already finalized")
}

// CompleteRequest marks an Accepted request as done.
func (s *WalkService) CompleteRequest(ctx context.Context, requestID, actorID string) (*models.WalkRequest, error) {
	const op = "complete"
	req, err := s.load(ctx, op, requestID, actorID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, s.fail(op, requestID, actorID, fmt.Errorf("%w: only the requester or companion can complete", ErrForbidden))
	}

	return s.transition(ctx, op, actorID, req, models.StatusChange{
		From: models.StatusAccepted,
		To:   models.StatusCompleted,
		At:   s.now(),
	}, "only accepted requests can be completed")
}

// ExpireStale cancels Active requests whose scheduled walk time is more than
// grace in the past. Requests that change state concurrently are skipped.
func (s *WalkService) ExpireStale(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	active, err := s.store.Find(ctx, models.WalkFilter{Statuses: []models.WalkStatus{models.StatusActive}})
	if err != nil {
		return 0, fmt.Errorf("failed to list active walk requests: %w", err)
	}

	cutoff := now.Add(-grace)
	expired := 0
	for i := range active {
		req := &active[i]
		at, ok := req.ScheduledAt()
		if !ok || !at.Before(cutoff) {
			continue
		}

		_, err := s.store.Transition(ctx, req.ID, models.StatusChange{
			From:               models.StatusActive,
			To:                 models.StatusCancelled,
			At:                 now,
			CancellationReason: ExpiredCancellationReason,
		})
		var mismatch *repository.StatusMismatchError
		switch {
		case err == nil:
			expired++
			metrics.IncTransition(string(models.StatusCancelled))
		case errors.As(err, &mismatch):
		default:
			logger.Log.WithError(err).WithField("request_id", req.ID).Warn("Failed to expire walk request")
		}
	}

	if expired > 0 {
		logger.Log.WithField("count", expired).Info("Expired stale walk requests")
	}
	return expired, nil
}

func (s *WalkService) load(ctx context.Context, op, requestID, actorID string) (*models.WalkRequest, error) {
	req, err := s.store.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, s.fail(op, requestID, actorID, fmt.Errorf("%w: %s", ErrNotFound, requestID))
	}
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", requestID).Error("Failed to load walk request")
		return nil, fmt.Errorf("failed to load walk request: %w", err)
	}
	return req, nil
}

// transition runs the conditional write. A request already outside
// change.From is rejected without touching the store; a lost race is reported
// with the status the winner left behind.
func (s *WalkService) transition(ctx context.Context, op, actorID string, req *models.WalkRequest, change models.StatusChange, reason string) (*models.WalkRequest, error) {
	if req.Status != change.From || req.Status.Terminal() {
		return nil, s.fail(op, req.ID, actorID, &TransitionError{
			RequestID: req.ID,
			Current:   req.Status,
			Requested: change.To,
			Reason:    reason,
		})
	}

	updated, err := s.store.Transition(ctx, req.ID, change)
	var mismatch *repository.StatusMismatchError
	switch {
	case err == nil:
	case errors.As(err, &mismatch):
		return nil, s.fail(op, req.ID, actorID, &TransitionError{
			RequestID: req.ID,
			Current:   mismatch.Actual,
			Requested: change.To,
			Reason:    reason,
		})
	case errors.Is(err, repository.ErrNotFound):
		return nil, s.fail(op, req.ID, actorID, fmt.Errorf("%w: %s", ErrNotFound, req.ID))
	default:
		logger.Log.WithError(err).WithField("request_id", req.ID).Error("Failed to transition walk request")
		return nil, fmt.Errorf("failed to %s walk request: %w", op, err)
	}

	metrics.IncTransition(string(change.To))
	logger.Log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"actor_id":   actorID,
		"from":       change.From,
		"to":         change.To,
	}).Info("Walk request transitioned")
	return updated, nil
}

func (s *WalkService) fail(op, requestID, actorID string, err error) error {
	metrics.IncTransitionFailure(op, Kind(err))
	logger.Log.WithFields(logrus.Fields{
		"op":         op,
		"request_id": requestID,
		"actor_id":   actorID,
	}).WithError(err).Warn("Walk request operation rejected")
	return err
}

func buildRequest(requesterID string, d models.CreateWalkRequest) (*models.WalkRequest, error) {
	var verrs ValidationErrors
	check := func(field, value string, required bool, max int) string {
		value = strings.TrimSpace(value)
		switch {
		case required && value == "":
			verrs = append(verrs, FieldError{field, "is required"})
		case utf8.RuneCountInString(value) > max:
			verrs = append(verrs, FieldError{field, fmt.Sprintf("must be at most %d characters", max)})
		}
		return value
	}

	if strings.TrimSpace(requesterID) == "" {
		verrs = append(verrs, FieldError{"requester_id", "is required"})
	}

	req := &models.WalkRequest{
		RequesterID:       requesterID,
		FromLocation:      check("from_location", d.FromLocation, true, MaxLocationLen),
		OriginDetail:      check("origin_detail", d.OriginDetail, false, MaxLocationLen),
		Destination:       check("destination", d.Destination, true, MaxLocationLen),
		AttireDescription: check("attire_description", d.AttireDescription, false, MaxFreeTextLen),
		Notes:             check("notes", d.Notes, false, MaxFreeTextLen),
		ContactNumber:     check("contact_number", d.ContactNumber, false, MaxContactLen),
	}

	if date, err := parseWalkDate(d.WalkDate); err != nil {
		verrs = append(verrs, FieldError{"walk_date", err.Error()})
	} else {
		req.WalkDate = date
	}
	if tod, err := parseWalkTime(d.WalkTime); err != nil {
		verrs = append(verrs, FieldError{"walk_time", err.Error()})
	} else {
		req.WalkTime = tod
	}

	if len(verrs) > 0 {
		return nil, verrs
	}
	return req, nil
}

func parseWalkDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("is required")
	}
	if t, err := time.Parse(models.WalkDateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, errors.New("must be a date in YYYY-MM-DD form")
}

func parseWalkTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("is required")
	}
	for _, layout := range []string{models.WalkTimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.WalkTimeLayout), nil
		}
	}
	return "", errors.New("must be a time of day in HH:MM form")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
