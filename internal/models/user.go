package models

import (
	"time"
)

// User represents an account on the marketplace.
type User struct {
	Base         `bson:",inline"`
	FullName     string    `bson:"fullname" json:"fullname"`
	Email        string    `bson:"email" json:"email"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string    `bson:"password" json:"-"` // Store hash, not plaintext
	IsAdmin      bool      `bson:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted      bool      `bson:"deleted" json:"-"` // Soft delete flag
}

// UserWithBookings is the admin back-office view of a user together with the
// visits they have requested. Built transiently per request, never persisted.
type UserWithBookings struct {
	User     `bson:",inline"`
	Bookings []Booking `bson:"-" json:"booking_history"`
}
