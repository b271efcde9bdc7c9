package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/edustack/authserver/domain"
)

// AuthCodeRepository persists authorization codes in MongoDB.
type AuthCodeRepository struct {
	authCodes *mongo.Collection
}

// NewAuthCodeRepository creates an AuthCodeRepository on db.
func NewAuthCodeRepository(db *mongo.Database) *AuthCodeRepository {
	return &AuthCodeRepository{
		authCodes: db.Collection(CodesCollection),
	}
}

// EnsureIndexes creates the unique code index. Call once at startup.
func (r *AuthCodeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.authCodes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create auth code index: %w", err)
	}
	return nil
}

// SaveAuthCode stores a freshly issued authorization code.
func (r *AuthCodeRepository) SaveAuthCode(ctx context.Context, authCode *domain.AuthCode) error {
	if authCode.Code == "" {
		return errors.New("auth code value cannot be empty")
	}

	_, err := r.authCodes.InsertOne(ctx, authCode)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("authorization code already exists: %w", err)
		}
		log.Error().Err(err).Msg("Error saving authorization code")
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Debug().Str("client_id", authCode.ClientID).Str("user_id", authCode.UserID).
		Msg("Authorization code saved")

	return nil
}

// GetAuthCode retrieves an authorization code record without consuming it.
func (r *AuthCodeRepository) GetAuthCode(ctx context.Context, codeValue string) (*domain.AuthCode, error) {
	var authCode domain.AuthCode
	err := r.authCodes.FindOne(ctx, bson.M{"code": codeValue}).Decode(&authCode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthCodeNotFound
		}
		log.Error().Err(err).Msg("Error retrieving authorization code")
		return nil, fmt.Errorf("failed to retrieve authorization code: %w", err)
	}
	return &authCode, nil
}

// ConsumeAuthCode atomically flips used=false to used=true via
// FindOneAndUpdate. With the filter matching on the used flag, the database
// guarantees that of any number of concurrent redemptions exactly one gets
// the document back and the rest see no match.
func (r *AuthCodeRepository) ConsumeAuthCode(ctx context.Context, codeValue string) (*domain.AuthCode, error) {
	filter := bson.M{"code": codeValue, "used": false}
	update := bson.M{"$set": bson.M{"used": true}}

	var authCode domain.AuthCode
	err := r.authCodes.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&authCode)
	if err == nil {
		return &authCode, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Msg("Error consuming authorization code")
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	// No unused document matched. Distinguish an unknown code from a replay.
	count, countErr := r.authCodes.CountDocuments(ctx, bson.M{"code": codeValue})
	if countErr != nil {
		return nil, fmt.Errorf("failed to look up authorization code: %w", countErr)
	}
	if count == 0 {
		return nil, domain.ErrAuthCodeNotFound
	}
	return nil, domain.ErrAuthCodeConsumed
}

// DeleteExpiredAuthCodes removes codes past their expiry.
func (r *AuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) error {
	_, err := r.authCodes.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}

var _ domain.AuthCodeRepository = (*AuthCodeRepository)(nil)
