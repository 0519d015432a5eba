package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"homzy/server/internal/config"
	"homzy/server/internal/db"
	"homzy/server/internal/models"
)

// ErrAlreadySubscribed is returned when an email is already on the
// newsletter list.
var ErrAlreadySubscribed = errors.New("this email is already subscribed")

// IEnquiryService defines the interface for public engagement operations:
// contact-form enquiries and newsletter subscriptions.
type IEnquiryService interface {
	CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) (*models.Enquiry, error)
	ListEnquiries(ctx context.Context) ([]models.Enquiry, error)
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
}

const (
	enquiriesCollection   = "enquiries"
	subscribersCollection = "subscribers"
)

// enquiryService implements IEnquiryService.
type enquiryService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewEnquiryService creates a new EnquiryService.
func NewEnquiryService(database *mongo.Database, cfg *config.Config) IEnquiryService {
	return &enquiryService{db: database, cfg: cfg}
}

// CreateEnquiry stores a contact-form submission.
func (s *enquiryService) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) (*models.Enquiry, error) {
	enquiry.CreatedAt = time.Now().UTC()

	collection := s.db.Collection(enquiriesCollection)
	operation := func() error {
		enquiry.GenID()
		_, insertErr := collection.InsertOne(ctx, enquiry)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert enquiry after multiple retries: %w", err)
	}
	return enquiry, nil
}

// ListEnquiries returns all enquiries for the admin view.
func (s *enquiryService) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	collection := s.db.Collection(enquiriesCollection)
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}
	defer cursor.Close(ctx)

	var enquiries []models.Enquiry
	if err = cursor.All(ctx, &enquiries); err != nil {
		return nil, fmt.Errorf("failed to decode enquiries: %w", err)
	}
	return enquiries, nil
}

// Subscribe adds an email to the newsletter list. The unique index on the
// subscribers collection turns repeats into ErrAlreadySubscribed.
func (s *enquiryService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	sub := &models.Subscriber{
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	collection := s.db.Collection(subscribersCollection)
	operation := func() error {
		sub.GenID()
		_, insertErr := collection.InsertOne(ctx, sub)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("failed to insert subscriber after multiple retries: %w", err)
	}
	return sub, nil
}
