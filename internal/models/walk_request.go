package models

import (
	"time"
)

// WalkStatus is the lifecycle state of a walk request.
type WalkStatus string

const (
	StatusActive    WalkStatus = "Active"
	StatusAccepted  WalkStatus = "Accepted"
	StatusCompleted WalkStatus = "Completed"
	StatusCancelled WalkStatus = "Cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s WalkStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Layouts used for the independently stored scheduling fields.
const (
	WalkDateLayout = "2006-01-02"
	WalkTimeLayout = "15:04"
)

// WalkRequest is a request for a walking companion.
type WalkRequest struct {
	ID                  string     `bson:"_id" json:"id"`
	RequesterID         string     `bson:"requester_id" json:"requester_id"`
	CompanionID         string     `bson:"companion_id,omitempty" json:"companion_id,omitempty"`
	FromLocation        string     `bson:"from_location" json:"from_location"`
	OriginDetail        string     `bson:"origin_detail,omitempty" json:"origin_detail,omitempty"`
	Destination         string     `bson:"destination" json:"destination"`
	WalkDate            time.Time  `bson:"walk_date" json:"walk_date"` // UTC midnight
	WalkTime            string     `bson:"walk_time" json:"walk_time"` // HH:MM
	AttireDescription   string     `bson:"attire_description,omitempty" json:"attire_description,omitempty"`
	Notes               string     `bson:"notes,omitempty" json:"notes,omitempty"`
	ContactNumber       string     `bson:"contact_number,omitempty" json:"contact_number,omitempty"`
	Status              WalkStatus `bson:"status" json:"status"`
	CancellationReason  string     `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancellationDetails string     `bson:"cancellation_details,omitempty" json:"cancellation_details,omitempty"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at" json:"updated_at"`
	AcceptedAt          *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	CancelledAt         *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
}

// ScheduledAt combines WalkDate and WalkTime into a single UTC instant.
// ok is false when WalkTime cannot be parsed.
func (r *WalkRequest) ScheduledAt() (at time.Time, ok bool) {
	tod, err := time.Parse(WalkTimeLayout, r.WalkTime)
	if err != nil {
		return time.Time{}, false
	}
	d := r.WalkDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC), true
}

// IsParticipant reports whether userID is the requester or the companion.
func (r *WalkRequest) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return r.RequesterID == userID || r.CompanionID == userID
}

// CreateWalkRequest holds the caller supplied details of a new request.
type CreateWalkRequest struct {
	FromLocation      string `json:"from_location"`
	OriginDetail      string `json:"origin_detail,omitempty"`
	Destination       string `json:"destination"`
	WalkDate          string `json:"walk_date"` // YYYY-MM-DD
	WalkTime          string `json:"walk_time"` // HH:MM or HH:MM:SS
	AttireDescription string `json:"attire_description,omitempty"`
	Notes             string `json:"notes,omitempty"`
	ContactNumber     string `json:"contact_number,omitempty"`
}

// StatusChange describes a conditional transition: it applies only while the
// stored status still equals From.
type StatusChange struct {
	From                WalkStatus
	To                  WalkStatus
	At                  time.Time
	CompanionID         string // Accepted only
	CancellationReason  string // Cancelled only
	CancellationDetails string // Cancelled only
}

// Apply writes the change onto r without checking From.
func (c StatusChange) Apply(r *WalkRequest) {
	at := c.At
	r.Status = c.To
	r.UpdatedAt = at
	switch c.To {
	case StatusAccepted:
		r.CompanionID = c.CompanionID
		r.AcceptedAt = &at
	case StatusCancelled:
		r.CancellationReason = c.CancellationReason
		r.CancellationDetails = c.CancellationDetails
		r.CancelledAt = &at
	}
}

// WalkFilter selects walk requests. Zero-valued fields do not constrain.
type WalkFilter struct {
	Statuses           []WalkStatus
	RequesterID        string
	CompanionID        string
	ParticipantID      string // requester or companion
	ExcludeRequesterID string
}

// Match reports whether r satisfies the filter.
func (f WalkFilter) Match(r *WalkRequest) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.CompanionID != "" && r.CompanionID != f.CompanionID {
		return false
	}
	if f.ParticipantID != "" && !r.IsParticipant(f.ParticipantID) {
		return false
	}
	if f.ExcludeRequesterID != "" && r.RequesterID == f.ExcludeRequesterID {
		return false
	}
	return true
}

// WalkRequestView is a walk request enriched with participant display data.
type WalkRequestView struct {
	WalkRequest
	RequesterName    string `json:"requester_name"`
	RequesterContact string `json:"requester_contact,omitempty"`
	CompanionName    string `json:"companion_name,omitempty"`
	CompanionContact string `json:"companion_contact,omitempty"`
}
