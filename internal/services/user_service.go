package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homzy/server/internal/auth"
	"homzy/server/internal/config"
	"homzy/server/internal/db"
	"homzy/server/internal/models"
)

var (
	// ErrEmailTaken is returned when registering with an email that already
	// belongs to an account.
	ErrEmailTaken = errors.New("an account with this email already exists")

	// ErrInvalidCredentials is returned on failed login attempts. It covers
	// both unknown email and wrong password so callers cannot probe for
	// registered addresses.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrResetTokenInvalid is returned when a password-reset token is
	// unknown or has expired.
	ErrResetTokenInvalid = errors.New("password reset token is invalid or expired")
)

// IUserService defines the interface for account operations.
type IUserService interface {
	Register(ctx context.Context, fullName, email, phone, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, fullName, phone string) (*models.User, error)
	DeleteAccount(ctx context.Context, userID primitive.ObjectID) error
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	RequestPasswordReset(ctx context.Context, email string) (string, *models.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

const usersCollection = "users"

func resetTokenKey(token string) string {
	return fmt.Sprintf("pwreset:%s", token)
}

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
	rdb *redis.Client
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config, rdb *redis.Client) IUserService {
	return &userService{db: database, cfg: cfg, rdb: rdb}
}

// Register creates a new account. The unique index on email is the source of
// truth for duplicates; a duplicate-key insert maps to ErrEmailTaken.
func (s *userService) Register(ctx context.Context, fullName, email, phone, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	collection := s.db.Collection(usersCollection)
	operation := func() error {
		user.GenID()
		_, insertErr := collection.InsertOne(ctx, user)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert new user after multiple retries: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email/password pair and returns the account.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)

	err := collection.FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindUserByID finds a non-deleted user by ID.
func (s *userService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)

	err := collection.FindOne(ctx, bson.M{"_id": userID, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// UpdateProfile changes the mutable profile fields. Empty values leave the
// corresponding field untouched.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, fullName, phone string) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if fullName != "" {
		set["fullname"] = fullName
	}
	if phone != "" {
		set["phone"] = phone
	}

	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}

	result, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("db error updating profile for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.FindUserByID(ctx, userID)
}

// DeleteAccount soft-deletes the user and their listings, and removes their
// bookings. Listings are cleaned up first so a half-finished cascade never
// leaves live listings pointing at a deleted owner.
func (s *userService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UTC()

	propFilter := bson.M{"user_id": userID, "deleted": false}
	propUpdate := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}
	if _, err := s.db.Collection(propertiesCollection).UpdateMany(ctx, propFilter, propUpdate); err != nil {
		return fmt.Errorf("failed to delete listings for user %s: %w", userID.Hex(), err)
	}

	if _, err := s.db.Collection(bookingsCollection).DeleteMany(ctx, bson.M{"user_id": userID.Hex()}); err != nil {
		return fmt.Errorf("failed to delete bookings for user %s: %w", userID.Hex(), err)
	}

	filter := bson.M{"_id": userID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "deleted_at": now, "updated_at": now}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, feedCacheKey).Err(); err != nil {
			return fmt.Errorf("failed to invalidate feed cache after deleting user %s: %w", userID.Hex(), err)
		}
	}
	return nil
}

// ListUsers returns all non-deleted accounts, newest first.
func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	collection := s.db.Collection(usersCollection)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of non-deleted accounts.
func (s *userService) CountUsers(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(usersCollection).CountDocuments(ctx, bson.M{"deleted": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// RequestPasswordReset issues a single-use reset token stored in Redis with a
// TTL and returns it alongside the account it belongs to. Callers are
// responsible for delivering the token; an unknown email returns
// mongo.ErrNoDocuments so the handler can respond without leaking it.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) (string, *models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil, mongo.ErrNoDocuments
		}
		return "", nil, fmt.Errorf("error finding user for password reset: %w", err)
	}

	token := uuid.NewString()
	key := resetTokenKey(token)
	if err := s.rdb.Set(ctx, key, user.ID.Hex(), s.cfg.ResetTokenTTL).Err(); err != nil {
		return "", nil, fmt.Errorf("failed to store reset token: %w", err)
	}
	return token, &user, nil
}

// ResetPassword consumes a reset token and sets the new password. The token
// is deleted before the update so it cannot be replayed.
func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	key := resetTokenKey(token)

	userHex, err := s.rdb.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("failed to read reset token: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(userHex)
	if err != nil {
		return fmt.Errorf("reset token %s holds malformed user ID %q: %w", token, userHex, err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	filter := bson.M{"_id": userID, "deleted": false}
	update := bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error resetting password for user %s: %w", userHex, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
