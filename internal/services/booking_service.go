package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homzy/server/internal/config"
	"homzy/server/internal/db"
	"homzy/server/internal/listing"
	"homzy/server/internal/models"
	"homzy/server/internal/utils"
)

// ErrDuplicateBooking is returned when a user already has a pending visit
// request on the same property.
var ErrDuplicateBooking = errors.New("a pending booking for this property already exists")

// IBookingService defines the interface for visit-booking operations.
type IBookingService interface {
	BookVisit(ctx context.Context, userID, propertyID string, visitDate *time.Time, message string) (*models.Booking, error)
	FindBookingsByUser(ctx context.Context, userID string) ([]listing.EnrichedBooking, error)
	UsersWithBookings(ctx context.Context) ([]models.UserWithBookings, error)
	CountBookings(ctx context.Context) (int64, error)
	Approve(ctx context.Context, kind listing.Kind, propertyID string) error
	Decline(ctx context.Context, userID, propertyID string) error
}

const bookingsCollection = "bookings"

// bookingService implements IBookingService.
type bookingService struct {
	db       *mongo.Database
	cfg      *config.Config
	rdb      *redis.Client
	workflow *ApprovalWorkflow
}

// NewBookingService creates a new BookingService backed by MongoDB.
func NewBookingService(database *mongo.Database, cfg *config.Config, rdb *redis.Client) IBookingService {
	store := &mongoApprovalStore{db: database, rdb: rdb, cfg: cfg}
	return &bookingService{
		db:       database,
		cfg:      cfg,
		rdb:      rdb,
		workflow: NewApprovalWorkflow(store),
	}
}

// BookVisit records a pending visit request. A user may hold at most one
// pending request per property.
func (s *bookingService) BookVisit(ctx context.Context, userID, propertyID string, visitDate *time.Time, message string) (*models.Booking, error) {
	collection := s.db.Collection(bookingsCollection)

	existing := collection.FindOne(ctx, bson.M{
		"user_id":     userID,
		"property_id": propertyID,
		"status":      models.BookingPending,
	})
	if existing.Err() == nil {
		return nil, ErrDuplicateBooking
	}
	if !errors.Is(existing.Err(), mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check for existing booking: %w", existing.Err())
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		UserID:     utils.FlexID(userID),
		PropertyID: utils.FlexID(propertyID),
		Status:     models.BookingPending,
		VisitDate:  visitDate,
		Message:    message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	operation := func() error {
		booking.GenID()
		_, insertErr := collection.InsertOne(ctx, booking)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert booking for user %s on property %s after multiple retries: %w",
			userID, propertyID, err)
	}
	return booking, nil
}

// FindBookingsByUser returns a user's bookings joined with their property
// details, placeholders included for listings that have since been removed.
func (s *bookingService) FindBookingsByUser(ctx context.Context, userID string) ([]listing.EnrichedBooking, error) {
	collection := s.db.Collection(bookingsCollection)

	cursor, err := collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings for user %s: %w", userID, err)
	}
	if len(bookings) == 0 {
		return []listing.EnrichedBooking{}, nil
	}

	properties, err := s.propertiesForBookings(ctx, bookings)
	if err != nil {
		return nil, err
	}
	return listing.Reconcile(bookings, properties), nil
}

// propertiesForBookings fetches the referenced properties in one query.
// Deleted listings are included on purpose: the join decides how to present
// them, and silently dropping them would hide booking history.
func (s *bookingService) propertiesForBookings(ctx context.Context, bookings []models.Booking) ([]models.Property, error) {
	ids := make([]primitive.ObjectID, 0, len(bookings))
	seen := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if b.PropertyID.IsZero() {
			continue
		}
		ref := utils.UnwrapID(b.PropertyID)
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		oid, err := primitive.ObjectIDFromHex(ref)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	collection := s.db.Collection(propertiesCollection)
	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find properties for bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err = cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties for bookings: %w", err)
	}
	return properties, nil
}

// UsersWithBookings returns every user who has booked at least one visit,
// with their bookings attached. Drives the admin booking-management view.
func (s *bookingService) UsersWithBookings(ctx context.Context) ([]models.UserWithBookings, error) {
	bookingsByUser, err := s.bookingsGroupedByUser(ctx)
	if err != nil {
		return nil, err
	}
	if len(bookingsByUser) == 0 {
		return []models.UserWithBookings{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(bookingsByUser))
	for ref := range bookingsByUser {
		oid, err := primitive.ObjectIDFromHex(ref)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}

	userColl := s.db.Collection(usersCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := userColl.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users with bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users with bookings: %w", err)
	}

	results := make([]models.UserWithBookings, 0, len(users))
	for _, u := range users {
		results = append(results, models.UserWithBookings{
			User:     u,
			Bookings: bookingsByUser[u.ID.Hex()],
		})
	}
	return results, nil
}

func (s *bookingService) bookingsGroupedByUser(ctx context.Context) (map[string][]models.Booking, error) {
	collection := s.db.Collection(bookingsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	grouped := make(map[string][]models.Booking)
	for _, b := range bookings {
		if b.UserID.IsZero() {
			continue
		}
		ref := utils.UnwrapID(b.UserID)
		grouped[ref] = append(grouped[ref], b)
	}
	return grouped, nil
}

// CountBookings returns the total number of bookings, for the admin dashboard.
func (s *bookingService) CountBookings(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(bookingsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// Approve delegates to the approval workflow.
func (s *bookingService) Approve(ctx context.Context, kind listing.Kind, propertyID string) error {
	return s.workflow.Approve(ctx, kind, propertyID)
}

// Decline delegates to the approval workflow.
func (s *bookingService) Decline(ctx context.Context, userID, propertyID string) error {
	return s.workflow.Decline(ctx, userID, propertyID)
}

// mongoApprovalStore implements ApprovalStore against MongoDB.
type mongoApprovalStore struct {
	db  *mongo.Database
	rdb *redis.Client
	cfg *config.Config
}

// FindPendingBooking returns the oldest pending booking on a property.
func (m *mongoApprovalStore) FindPendingBooking(ctx context.Context, propertyID string) (*models.Booking, error) {
	var booking models.Booking
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	filter := bson.M{"property_id": propertyID, "status": models.BookingPending}

	err := m.db.Collection(bookingsCollection).FindOne(ctx, filter, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoPendingBooking
		}
		return nil, fmt.Errorf("error finding pending booking for property %s: %w", propertyID, err)
	}
	return &booking, nil
}

// FindUserBooking returns a user's most recent booking on a property,
// whatever its status. The workflow inspects the status itself.
func (m *mongoApprovalStore) FindUserBooking(ctx context.Context, userID, propertyID string) (*models.Booking, error) {
	var booking models.Booking
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	filter := bson.M{"user_id": userID, "property_id": propertyID}

	err := m.db.Collection(bookingsCollection).FindOne(ctx, filter, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding booking for user %s on property %s: %w", userID, propertyID, err)
	}
	return &booking, nil
}

// SetBookingStatus moves a booking to the given status.
func (m *mongoApprovalStore) SetBookingStatus(ctx context.Context, bookingID primitive.ObjectID, status models.BookingStatus) error {
	filter := bson.M{"_id": bookingID}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}

	result, err := m.db.Collection(bookingsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error updating booking %s status: %w", bookingID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("booking %s not found when setting status %s", bookingID.Hex(), status)
	}
	return nil
}

// CloseProperty flips a listing to its closed state.
func (m *mongoApprovalStore) CloseProperty(ctx context.Context, propertyID string, kind listing.Kind) error {
	closedState, err := listing.ClosedState(kind)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(propertyID)
	if err != nil {
		return fmt.Errorf("invalid property ID %q: %w", propertyID, err)
	}

	filter := bson.M{"_id": oid, "deleted": false}
	update := bson.M{"$set": bson.M{
		"listing_type": string(closedState),
		"is_closed":    true,
		"updated_at":   time.Now().UTC(),
	}}

	result, err := m.db.Collection(propertiesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error closing property %s: %w", propertyID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("property %s not found when closing", propertyID)
	}

	if m.rdb != nil {
		if err := m.rdb.Del(ctx, feedCacheKey).Err(); err != nil {
			// Stale feed self-heals at TTL expiry.
			log.Printf("WARN: failed to invalidate feed cache after closing %s: %v", propertyID, err)
		}
	}
	return nil
}
