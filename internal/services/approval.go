package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homzy/server/internal/listing"
	"homzy/server/internal/models"
)

var (
	// ErrTransitionConflict is returned when a booking has already reached a
	// terminal status and a second decision is attempted.
	ErrTransitionConflict = errors.New("booking has already been decided")

	// ErrTransitionInFlight is returned when a decision for the same property
	// is already being processed.
	ErrTransitionInFlight = errors.New("a decision for this property is already in progress")

	// ErrNoPendingBooking is returned when an approval targets a property
	// without any pending visit request.
	ErrNoPendingBooking = errors.New("no pending booking for this property")
)

// ApprovalStore is the persistence surface the approval workflow mutates
// through. Kept narrow so decision logic can be tested against a mock.
type ApprovalStore interface {
	FindPendingBooking(ctx context.Context, propertyID string) (*models.Booking, error)
	FindUserBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error)
	SetBookingStatus(ctx context.Context, bookingID primitive.ObjectID, status models.BookingStatus) error
	CloseProperty(ctx context.Context, propertyID string, kind listing.Kind) error
}

// ApprovalWorkflow serializes booking decisions per property. At most one
// approve or decline for a given property runs at a time; concurrent attempts
// are rejected rather than queued.
type ApprovalWorkflow struct {
	store ApprovalStore

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewApprovalWorkflow creates a workflow over the given store.
func NewApprovalWorkflow(store ApprovalStore) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		store:    store,
		inFlight: make(map[string]struct{}),
	}
}

func (w *ApprovalWorkflow) begin(propertyID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[propertyID]; busy {
		return false
	}
	w.inFlight[propertyID] = struct{}{}
	return true
}

func (w *ApprovalWorkflow) end(propertyID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, propertyID)
}

// Approve accepts the pending visit request on a property: the listing moves
// to its closed state and the booking is marked approved. Returns
// ErrTransitionConflict if the booking was already decided and
// ErrTransitionInFlight if another decision for the property is running.
func (w *ApprovalWorkflow) Approve(ctx context.Context, kind listing.Kind, propertyID string) error {
	if !w.begin(propertyID) {
		return ErrTransitionInFlight
	}
	defer w.end(propertyID)

	booking, err := w.store.FindPendingBooking(ctx, propertyID)
	if err != nil {
		return err
	}
	if booking.Status.Terminal() {
		return ErrTransitionConflict
	}

	if err := w.store.CloseProperty(ctx, propertyID, kind); err != nil {
		return fmt.Errorf("failed to close property %s on approval: %w", propertyID, err)
	}
	if err := w.store.SetBookingStatus(ctx, booking.ID, models.BookingApproved); err != nil {
		log.Printf("CRITICAL: property %s closed but booking %s could not be marked approved: %v",
			propertyID, booking.ID.Hex(), err)
		return fmt.Errorf("failed to mark booking %s approved: %w", booking.ID.Hex(), err)
	}
	return nil
}

// Decline rejects a user's visit request. The property is left untouched so
// it stays visible to other prospects. Returns ErrTransitionConflict if the
// booking was already decided.
func (w *ApprovalWorkflow) Decline(ctx context.Context, userID, propertyID string) error {
	if !w.begin(propertyID) {
		return ErrTransitionInFlight
	}
	defer w.end(propertyID)

	booking, err := w.store.FindUserBooking(ctx, userID, propertyID)
	if err != nil {
		return err
	}
	if booking.Status.Terminal() {
		return ErrTransitionConflict
	}

	if err := w.store.SetBookingStatus(ctx, booking.ID, models.BookingDeclined); err != nil {
		return fmt.Errorf("failed to mark booking %s declined: %w", booking.ID.Hex(), err)
	}
	return nil
}
