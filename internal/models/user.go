package models

import (
	"time"
)

// User is a directory entry for a person who can request or accompany walks.
type User struct {
	ID            string     `bson:"_id" json:"id"`
	FullName      string     `bson:"full_name" json:"full_name"`
	Username      string     `bson:"username,omitempty" json:"username,omitempty"`
	Email         string     `bson:"email" json:"email"`
	ContactNumber string     `bson:"contact_number,omitempty" json:"contact_number,omitempty"`
	IsDeleted     bool       `bson:"is_deleted" json:"-"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty" json:"-"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the display data the directory exposes for read views.
type PublicUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact,omitempty"`
}

// Public projects u to its display data. Contact falls back to email.
func (u *User) Public() PublicUser {
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	contact := u.ContactNumber
	if contact == "" {
		contact = u.Email
	}
	return PublicUser{ID: u.ID, DisplayName: name, Contact: contact}
}
