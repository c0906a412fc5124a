package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

const (
	collectionAccounts = "accounts"

	indexUsername      = "uniq_username"
	indexVerifiedEmail = "uniq_verified_email"
	indexEmailLookup   = "email_lookup"
)

// AccountRepository implements ports.AccountRepository on a single collection
// where each document embeds its own message array.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type messageDocument struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type accountDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	PasswordHash        string             `bson:"password_hash"`
	VerifyCode          string             `bson:"verify_code,omitempty"`
	VerifyExpiry        time.Time          `bson:"verify_expiry,omitempty"`
	IsVerified          bool               `bson:"is_verified"`
	IsAcceptingMessages bool               `bson:"is_accepting_messages"`
	Messages            []messageDocument  `bson:"messages"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

func toDocument(a *domain.Account) accountDocument {
	msgs := make([]messageDocument, 0, len(a.Messages))
	for _, m := range a.Messages {
		msgs = append(msgs, toMessageDocument(m))
	}
	return accountDocument{
		Username:            a.Username,
		Email:               a.Email,
		PasswordHash:        a.PasswordHash,
		VerifyCode:          a.VerifyCode,
		VerifyExpiry:        a.VerifyExpiry.UTC(),
		IsVerified:          a.IsVerified,
		IsAcceptingMessages: a.IsAcceptingMessages,
		Messages:            msgs,
		CreatedAt:           a.CreatedAt.UTC(),
		UpdatedAt:           a.UpdatedAt.UTC(),
	}
}

func toMessageDocument(m domain.Message) messageDocument {
	return messageDocument{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt.UTC()}
}

func (d accountDocument) toDomain() *domain.Account {
	a := &domain.Account{
		ID:                  d.ID.Hex(),
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		VerifyCode:          d.VerifyCode,
		VerifyExpiry:        d.VerifyExpiry,
		IsVerified:          d.IsVerified,
		IsAcceptingMessages: d.IsAcceptingMessages,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	for _, m := range d.Messages {
		a.Messages = append(a.Messages, domain.Message{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return a
}

// findOne loads a single account without its inbox. Verified records win when
// more than one document matches.
func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().
		SetProjection(bson.M{"messages": 0}).
		SetSort(bson.D{{Key: "is_verified", Value: -1}, {Key: "created_at", Value: 1}})

	var doc accountDocument
	if err := r.col.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(identifier)},
		bson.M{"username": identifier},
	}})
}

// Create inserts a new account. The unique indexes are the authority on
// username and verified-email uniqueness.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toDocument(account))
	if err != nil {
		if conflict := classifyDuplicate(err); conflict != nil {
			return "", conflict
		}
		return "", fmt.Errorf("insert account: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert account: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *AccountRepository) RefreshPending(ctx context.Context, id, passwordHash, code string, expiry time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "is_verified": false}
	update := bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"verify_code":   code,
		"verify_expiry": expiry.UTC(),
		"updated_at":    time.Now().UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("refresh pending account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrEmailInUse
	}
	return nil
}

// MarkVerified is a compare-and-set on verify_code so that two concurrent
// submissions of the same code cannot both succeed.
func (r *AccountRepository) MarkVerified(ctx context.Context, id, code string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "is_verified": false, "verify_code": code}
	update := bson.M{
		"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"verify_code": "", "verify_expiry": ""},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		if conflict := classifyDuplicate(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIncorrectCode
	}
	return nil
}

func (r *AccountRepository) ReleaseStalePending(ctx context.Context, username string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{
		"username":      username,
		"is_verified":   false,
		"verify_expiry": bson.M{"$lt": now.UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("release stale pending: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *AccountRepository) SetAcceptingMessages(ctx context.Context, id string, accept bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"is_accepting_messages": accept, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("set accepting messages: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AppendMessage pushes onto the embedded array in one atomic update; the
// acceptance flag is part of the filter so a concurrent opt-out wins.
func (r *AccountRepository) AppendMessage(ctx context.Context, accountID string, msg domain.Message) error {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "is_accepting_messages": true},
		bson.M{"$push": bson.M{"messages": toMessageDocument(msg)}},
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotAccepting
	}
	return nil
}

func (r *AccountRepository) ListMessages(ctx context.Context, accountID string) ([]domain.Message, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, inboxPipeline(oid))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Message{ID: d.ID, Content: d.Content, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

// inboxPipeline flattens one account's embedded messages, newest first.
func inboxPipeline(oid primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}},
		{{Key: "$unwind", Value: "$messages"}},
		{{Key: "$sort", Value: bson.D{{Key: "messages.created_at", Value: -1}}}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$messages"}}}},
	}
}

func (r *AccountRepository) DeleteMessage(ctx context.Context, accountID, messageID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return false, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"messages": bson.M{"_id": messageID}}},
	)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes on the accounts collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUsername).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName(indexVerifiedEmail).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_verified": true}),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "is_verified", Value: -1}},
			Options: options.Index().SetName(indexEmailLookup),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// classifyDuplicate maps a unique index violation to the matching domain
// conflict, or returns nil when err is not a duplicate key error.
func classifyDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if strings.Contains(err.Error(), indexVerifiedEmail) {
		return domain.ErrEmailInUse
	}
	return domain.ErrUsernameTaken
}
