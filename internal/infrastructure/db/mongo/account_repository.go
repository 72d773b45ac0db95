package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

const collectionAccounts = "accounts"

// AccountRepository implements ports.AccountRepository on MongoDB. Each
// account is one document, so every conditional update is atomic.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toAccountDoc(acc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyRegistered
		}
		return storageErr("insert account", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storageErr("find account", err)
	}
	return doc.toDomain(), nil
}

// SaveChallenge overwrites the otp sub-document.
func (r *AccountRepository) SaveChallenge(ctx context.Context, id string, ch domain.OTPChallenge) error {
	update := bson.M{"$set": bson.M{
		"otp":        toChallengeDoc(ch),
		"updated_at": time.Now().UTC(),
	}}
	return r.updateByID(ctx, "save challenge", bson.M{"_id": id}, update)
}

// FinalizeChallenge matches on the code, the consumed flag and the expiry so
// only one of several concurrent callers can modify the document, and never
// after the code expired.
func (r *AccountRepository) FinalizeChallenge(ctx context.Context, id, code string, purpose domain.OTPPurpose, now time.Time, update ports.AccountUpdate) error {
	set := bson.M{
		"otp.code":       nil,
		"otp.expires_at": nil,
		"otp.consumed":   true,
		"updated_at":     time.Now().UTC(),
	}
	if update.EmailVerified != nil {
		set["email_verified"] = *update.EmailVerified
	}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}

	err := r.updateByID(ctx, "finalize challenge", finalizeFilter(id, code, purpose, now), bson.M{"$set": set})
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrAlreadyConsumed
	}
	return err
}

func (r *AccountRepository) ClearChallenge(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{
		"otp.code":       nil,
		"otp.expires_at": nil,
		"otp.consumed":   true,
	}}
	err := r.updateByID(ctx, "clear challenge", bson.M{"_id": id, "otp": bson.M{"$ne": nil}}, update)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	return err
}

func (r *AccountRepository) ApproveSeller(ctx context.Context, id string, review ports.SellerReview) error {
	update := bson.M{"$set": bson.M{
		"seller.status":      string(domain.SellerApproved),
		"seller.reviewed_by": review.ReviewerID,
		"seller.reviewed_at": review.At.UTC(),
		"email_verified":     true,
		"active":             true,
		"updated_at":         review.At.UTC(),
	}}
	return r.updateByID(ctx, "approve seller", pendingSellerFilter(id), update)
}

func (r *AccountRepository) RejectSeller(ctx context.Context, id string, review ports.SellerReview) error {
	update := bson.M{"$set": bson.M{
		"seller.status":      string(domain.SellerRejected),
		"seller.reviewed_by": review.ReviewerID,
		"seller.reviewed_at": review.At.UTC(),
		"updated_at":         review.At.UTC(),
	}}
	return r.updateByID(ctx, "reject seller", pendingSellerFilter(id), update)
}

func (r *AccountRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"active":     false,
		"deleted_at": at.UTC(),
		"updated_at": at.UTC(),
	}}
	return r.updateByID(ctx, "soft delete account", bson.M{"_id": id}, update)
}

// ListPendingSellers returns sellers awaiting review, newest first.
func (r *AccountRepository) ListPendingSellers(ctx context.Context) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"role":          string(domain.RoleSeller),
		"seller.status": string(domain.SellerPending),
		"deleted_at":    nil,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageErr("list pending sellers", err)
	}
	defer cursor.Close(ctx)

	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("decode pending sellers", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the indexes the account queries rely on. The
// unique email index is what makes concurrent signups safe.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "seller.status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("seller_review_queue"),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// updateByID runs a single-document update and maps "nothing matched" to
// domain.ErrAccountNotFound.
func (r *AccountRepository) updateByID(ctx context.Context, op string, filter, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return storageErr(op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func finalizeFilter(id, code string, purpose domain.OTPPurpose, now time.Time) bson.M {
	return bson.M{
		"_id":            id,
		"otp.code":       code,
		"otp.purpose":    string(purpose),
		"otp.consumed":   false,
		"otp.expires_at": bson.M{"$gt": now},
	}
}

func pendingSellerFilter(id string) bson.M {
	return bson.M{
		"_id":           id,
		"role":          string(domain.RoleSeller),
		"seller.status": string(domain.SellerPending),
		"deleted_at":    nil,
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
