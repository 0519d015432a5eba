package models

import (
	"time"

	"homzy/server/internal/utils"
)

// BookingStatus is the lifecycle state of a visit booking. Pending is the
// initial state; approved and declined are terminal.
type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingApproved BookingStatus = "approved"
	BookingDeclined BookingStatus = "declined"
)

// Terminal reports whether no further transition is permitted.
func (s BookingStatus) Terminal() bool {
	return s == BookingApproved || s == BookingDeclined
}

// Booking is a user's request to visit a property.
//
// UserID and PropertyID are stored as normalized plain strings (see
// utils.FlexID): client payloads deliver identifiers either bare or wrapped
// in {"$oid": ...}, and normalizing once at ingestion keeps every later
// comparison a plain string equality.
type Booking struct {
	Base       `bson:",inline"`
	UserID     utils.FlexID  `bson:"user_id" json:"userId"`
	PropertyID utils.FlexID  `bson:"property_id" json:"propertyId"`
	Status     BookingStatus `bson:"status" json:"status"`
	VisitDate  *time.Time    `bson:"visit_date,omitempty" json:"visitDate,omitempty"`
	Message    string        `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updatedAt"`
}
