package services

import (
	"context"
	"encoding/json"
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
)

// PropertyFilters narrows a public property search. Zero values mean "no
// constraint". Min/MaxPrice apply to the sale price for sale listings and to
// the monthly rent for rentals.
type PropertyFilters struct {
	PropertyType     string
	BhkType          string
	FurnishingStatus string
	City             string
	MinPrice         float64
	MaxPrice         float64
	OpenOnly         bool
}

// IPropertyService defines the interface for property-related operations.
type IPropertyService interface {
	CreateProperty(ctx context.Context, userID primitive.ObjectID, kind listing.Kind, prop *models.Property) (*models.Property, error)
	FindPropertyByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	SearchProperties(ctx context.Context, kind listing.Kind, filters PropertyFilters) ([]models.Property, error)
	FindPropertiesByUser(ctx context.Context, userID primitive.ObjectID, kind listing.Kind) ([]models.Property, error)
	DeleteProperty(ctx context.Context, propertyID, userID primitive.ObjectID, isAdmin bool) error
	CombinedFeed(ctx context.Context) ([]models.Property, error)
	AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageKey string) error
	Cities(ctx context.Context) ([]string, error)
}

const propertiesCollection = "properties"

// feedCacheKey is the Redis key holding the combined rent+sale feed.
const feedCacheKey = "feed:rentandsale"

// propertyService implements IPropertyService.
type propertyService struct {
	db  *mongo.Database
	cfg *config.Config
	rdb *redis.Client
}

// NewPropertyService creates a new PropertyService. rdb may be nil, in which
// case the combined feed is rebuilt on every call.
func NewPropertyService(database *mongo.Database, cfg *config.Config, rdb *redis.Client) IPropertyService {
	return &propertyService{db: database, cfg: cfg, rdb: rdb}
}

// CreateProperty inserts a new listing in its open state. The canonical open
// label for the kind is written as the initial listing_type so classification
// of fresh records is trivially stable.
func (s *propertyService) CreateProperty(ctx context.Context, userID primitive.ObjectID, kind listing.Kind, prop *models.Property) (*models.Property, error) {
	openState, err := listing.OpenState(kind)
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	operation := func() error {
		prop.GenID()
		prop.UserID = userID
		prop.Kind = string(kind)
		prop.ListingType = string(openState)
		prop.IsClosed = false
		prop.Deleted = false
		prop.CreatedAt = now
		prop.UpdatedAt = now
		if prop.Images == nil {
			prop.Images = []string{}
		}
		_, insertErr := collection.InsertOne(ctx, prop)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert new %s property for user %s after multiple retries: %w",
			kind, userID.Hex(), err)
	}

	s.invalidateFeed(ctx)
	return prop, nil
}

// FindPropertyByID finds a non-deleted property by its ID.
func (s *propertyService) FindPropertyByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	var prop models.Property
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"_id": propertyID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&prop)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding property by ID %s: %w", propertyID.Hex(), err)
	}
	return &prop, nil
}

// SearchProperties returns properties of the given kind matching the filters,
// newest first. Price bounds are applied against the field appropriate to the
// kind. When OpenOnly is set, closed listings are filtered out using the
// canonical classifier as the predicate.
func (s *propertyService) SearchProperties(ctx context.Context, kind listing.Kind, filters PropertyFilters) ([]models.Property, error) {
	collection := s.db.Collection(propertiesCollection)

	filter := bson.M{
		"kind":    string(kind),
		"deleted": false,
	}
	if filters.PropertyType != "" {
		filter["basic.property_type"] = filters.PropertyType
	}
	if filters.BhkType != "" {
		filter["basic.bhk_type"] = filters.BhkType
	}
	if filters.FurnishingStatus != "" {
		filter["basic.furnishing_status"] = filters.FurnishingStatus
	}
	if filters.City != "" {
		filter["location.city"] = filters.City
	}

	priceField := "basic.price"
	if kind == listing.KindRent {
		priceField = "basic.monthly_rent"
	}
	priceBounds := bson.M{}
	if filters.MinPrice > 0 {
		priceBounds["$gte"] = filters.MinPrice
	}
	if filters.MaxPrice > 0 {
		priceBounds["$lte"] = filters.MaxPrice
	}
	if len(priceBounds) > 0 {
		filter[priceField] = priceBounds
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s property search: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var results []models.Property
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s property search results: %w", kind, err)
	}

	normalized, err := s.normalize(results)
	if err != nil {
		return nil, err
	}
	if !filters.OpenOnly {
		return normalized, nil
	}

	open := make([]models.Property, 0, len(normalized))
	for _, p := range normalized {
		if !listing.State(p.ListingType).IsClosed() {
			open = append(open, p)
		}
	}
	return open, nil
}

// normalize rewrites each property's listing_type to its canonical label so
// clients never see raw legacy text. Classification failures are logged and
// the record passed through unchanged rather than dropped.
func (s *propertyService) normalize(props []models.Property) ([]models.Property, error) {
	for i := range props {
		state, err := listing.Classify(listing.Kind(props[i].Kind), props[i].ListingType, props[i].IsClosed)
		if err != nil {
			log.Printf("WARN: property %s has unclassifiable kind %q: %v", props[i].ID.Hex(), props[i].Kind, err)
			continue
		}
		props[i].ListingType = string(state)
	}
	return props, nil
}

// FindPropertiesByUser returns all of a user's non-deleted properties of the
// given kind, newest first, with canonical state labels.
func (s *propertyService) FindPropertiesByUser(ctx context.Context, userID primitive.ObjectID, kind listing.Kind) ([]models.Property, error) {
	collection := s.db.Collection(propertiesCollection)
	filter := bson.M{"user_id": userID, "kind": string(kind), "deleted": false}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s properties for user %s: %w", kind, userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var results []models.Property
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s properties for user %s: %w", kind, userID.Hex(), err)
	}
	return s.normalize(results)
}

// DeleteProperty performs a soft delete. Owners may delete their own
// listings; admins may delete any.
func (s *propertyService) DeleteProperty(ctx context.Context, propertyID, userID primitive.ObjectID, isAdmin bool) error {
	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()

	filter := bson.M{"_id": propertyID, "deleted": false}
	if !isAdmin {
		filter["user_id"] = userID
	}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting property %s: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		var prop models.Property
		checkErr := collection.FindOne(ctx, bson.M{"_id": propertyID}).Decode(&prop)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("property %s not found", propertyID.Hex())
		}
		if prop.Deleted {
			return fmt.Errorf("property %s is already deleted", propertyID.Hex())
		}
		if prop.UserID != userID {
			return fmt.Errorf("property %s does not belong to user %s", propertyID.Hex(), userID.Hex())
		}
		return fmt.Errorf("failed to delete property %s (condition not met)", propertyID.Hex())
	}

	s.invalidateFeed(ctx)
	return nil
}

// CombinedFeed returns the fairly-interleaved rent+sale feed used by the
// landing page and the admin reconciliation views. The result is cached in
// Redis for a short TTL since it is the hottest read in the system.
func (s *propertyService) CombinedFeed(ctx context.Context) ([]models.Property, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, feedCacheKey).Result()
		if err == nil {
			var props []models.Property
			if jsonErr := json.Unmarshal([]byte(cached), &props); jsonErr == nil {
				return props, nil
			}
			log.Printf("WARN: discarding unreadable feed cache entry: %v", err)
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("WARN: feed cache read failed, rebuilding: %v", err)
		}
	}

	rentals, err := s.SearchProperties(ctx, listing.KindRent, PropertyFilters{})
	if err != nil {
		return nil, err
	}
	sales, err := s.SearchProperties(ctx, listing.KindSale, PropertyFilters{})
	if err != nil {
		return nil, err
	}

	feed := listing.Interleave(rentals, sales)

	if s.rdb != nil {
		if data, jsonErr := json.Marshal(feed); jsonErr == nil {
			if err := s.rdb.Set(ctx, feedCacheKey, data, s.cfg.FeedCacheTTL).Err(); err != nil {
				log.Printf("WARN: failed to cache combined feed: %v", err)
			}
		}
	}

	return feed, nil
}

// invalidateFeed drops the cached combined feed after any mutation.
func (s *propertyService) invalidateFeed(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, feedCacheKey).Err(); err != nil {
		log.Printf("WARN: failed to invalidate feed cache: %v", err)
	}
}

// AddImageToProperty appends a processed image key to a listing's image
// array. Called by the image-processing task once the resized copy is stored.
func (s *propertyService) AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageKey string) error {
	collection := s.db.Collection(propertiesCollection)

	filter := bson.M{"_id": propertyID, "deleted": false}
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to property %s: %w", imageKey, propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("property %s not found or cannot be updated when adding image", propertyID.Hex())
	}
	return nil
}

// Cities returns the distinct set of cities with at least one active listing.
func (s *propertyService) Cities(ctx context.Context) ([]string, error) {
	collection := s.db.Collection(propertiesCollection)
	values, err := collection.Distinct(ctx, "location.city", bson.M{"deleted": false})
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	cities := make([]string, 0, len(values))
	for _, v := range values {
		if city, ok := v.(string); ok && city != "" {
			cities = append(cities, city)
		}
	}
	return cities, nil
}
