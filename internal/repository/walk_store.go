package repository

import (
	"errors"
	"fmt"

	"github.com/Dias221467/Walk_Companion/internal/models"
)

// ErrNotFound is returned when a walk request id is unknown to the store.
var ErrNotFound = errors.New("walk request not found")

// ErrDuplicateID is returned by Create when the id is already taken.
var ErrDuplicateID = errors.New("walk request id already exists")

// StatusMismatchError reports a conditional transition that lost: the stored
// status was no longer the expected one at the moment of the write.
type StatusMismatchError struct {
	ID       string
	Expected models.WalkStatus
	Actual   models.WalkStatus
}

func (e *StatusMismatchError) Error() string {
	return fmt.Sprintf("walk request %s: expected status %s, found %s", e.ID, e.Expected, e.Actual)
}

func cloneRequest(r *models.WalkRequest) *models.WalkRequest {
	c := *r
	if r.AcceptedAt != nil {
		t := *r.AcceptedAt
		c.AcceptedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
