package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docbook/booking-system/internal/core/domain"
)

const accountCollection = "accounts"

// AccountRepository stores the password identity provider's accounts.
// Emails are kept lower-cased and are unique.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash,omitempty"`
	DisplayName  string `bson:"display_name,omitempty"`
	PhotoURL     string `bson:"photo_url,omitempty"`
	Provider     string `bson:"provider"`
	Disabled     bool   `bson:"disabled"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := mongoAccount{
		ID:           account.ID,
		Email:        strings.ToLower(account.Email),
		PasswordHash: account.PasswordHash,
		DisplayName:  account.DisplayName,
		PhotoURL:     account.PhotoURL,
		Provider:     account.Provider,
		Disabled:     account.Disabled,
		CreatedAt:    account.CreatedAt.Unix(),
		UpdatedAt:    account.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.Rejected(domain.ReasonAlreadyInUse, err)
		}
		return nil, r.unavailable("insert account", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var ma mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&ma); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.Rejected(domain.ReasonUserNotFound, err)
		}
		return nil, r.unavailable("find account", err)
	}
	return ma.toDomain(), nil
}

// EnsureIndexes creates the unique email index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

// unavailable reports storage failures as the provider's network error.
func (r *AccountRepository) unavailable(op string, err error) error {
	return domain.Rejected(domain.ReasonNetworkError, fmt.Errorf("%s: %w", op, err))
}

func (ma mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           ma.ID,
		Email:        ma.Email,
		PasswordHash: ma.PasswordHash,
		DisplayName:  ma.DisplayName,
		PhotoURL:     ma.PhotoURL,
		Provider:     ma.Provider,
		Disabled:     ma.Disabled,
		CreatedAt:    unixToTime(ma.CreatedAt),
		UpdatedAt:    unixToTime(ma.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
