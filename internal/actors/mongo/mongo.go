package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbroggi/clerksync/internal/core/model"
	"github.com/rbroggi/clerksync/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is a mongo adapter for persistance.
type MongoDB struct {
	userCollection *mongo.Collection
	nowFunc        func() time.Time
}

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// UserCollection is a mongo collection
	UserCollection *mongo.Collection
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(p *MongoDB) {
		p.nowFunc = nowFunc
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	if args.UserCollection == nil {
		return nil, errors.New("nil user collection")
	}
	m := &MongoDB{userCollection: args.UserCollection, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

// EnsureIndexes creates the unique index on the identity provider id.
func (p *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := p.userCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clerk_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating clerk_id index: %w", err)
	}
	return nil
}

// SaveUser will save the user in the database.
func (p *MongoDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser := p.toDBModel(user)
	if _, err := p.userCollection.InsertOne(ctx, dbUser); err != nil {
		return fmt.Errorf("error inserting user [%s]: %w", user.ClerkID, err)
	}

	user.ID = dbUser.ID.Hex()
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// UpdateUser will overwrite the mutable fields of the user. It returns model.ErrNotFound if the user does not exist.
func (p *MongoDB) UpdateUser(ctx context.Context, clerkID string, changes model.UserChanges) (*model.User, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: changes.Username},
		{Key: "first_name", Value: changes.FirstName},
		{Key: "last_name", Value: changes.LastName},
		{Key: "photo", Value: changes.Photo},
		{Key: "updated_at", Value: p.nowFunc()},
	}}}
	return p.findOneAndUpdate(ctx, clerkID, update)
}

// GetUser returns the live user identified by clerkID.
func (p *MongoDB) GetUser(ctx context.Context, clerkID string) (*model.User, error) {
	existing := new(userDB)
	if err := p.userCollection.FindOne(ctx, liveUser(clerkID)).Decode(existing); err != nil {
		return nil, translateErr(err)
	}
	user := translateDBToModel(*existing)
	return &user, nil
}

// DeleteUser will delete a user from the database and return the deleted record.
func (p *MongoDB) DeleteUser(ctx context.Context, query ports.DeleteUserQuery) (*model.User, error) {
	if query.HardDelete {
		deleted := new(userDB)
		if err := p.userCollection.FindOneAndDelete(ctx, liveUser(query.ClerkID)).Decode(deleted); err != nil {
			return nil, translateErr(err)
		}
		user := translateDBToModel(*deleted)
		return &user, nil
	}
	now := p.nowFunc()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "deleted_at", Value: now},
		{Key: "updated_at", Value: now},
	}}}
	return p.findOneAndUpdate(ctx, query.ClerkID, update)
}

// Ping checks the database is reachable.
func (p *MongoDB) Ping(ctx context.Context) error {
	return p.userCollection.Database().Client().Ping(ctx, nil)
}

func (p *MongoDB) findOneAndUpdate(ctx context.Context, clerkID string, update bson.D) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	existing := new(userDB)
	if err := p.userCollection.FindOneAndUpdate(ctx, liveUser(clerkID), update, opts).Decode(existing); err != nil {
		return nil, translateErr(err)
	}
	user := translateDBToModel(*existing)
	return &user, nil
}

func liveUser(clerkID string) bson.M {
	return bson.M{
		"clerk_id":   clerkID,
		"deleted_at": bson.M{"$exists": false},
	}
}

func translateErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	return err
}

func (p *MongoDB) toDBModel(user *model.User) *userDB {
	dbUser := &userDB{
		ID:        primitive.NewObjectID(),
		ClerkID:   user.ClerkID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Photo:     user.Photo,
	}
	if id, err := primitive.ObjectIDFromHex(user.ID); err == nil {
		dbUser.ID = id
	}
	if !user.CreatedAt.IsZero() {
		dbUser.CreatedAt = user.CreatedAt
	} else {
		dbUser.CreatedAt = p.nowFunc()
	}
	dbUser.UpdatedAt = p.nowFunc()
	return dbUser
}

func translateDBToModel(dbUser userDB) model.User {
	return model.User{
		ID:        dbUser.ID.Hex(),
		ClerkID:   dbUser.ClerkID,
		Email:     dbUser.Email,
		Username:  dbUser.Username,
		FirstName: dbUser.FirstName,
		LastName:  dbUser.LastName,
		Photo:     dbUser.Photo,
		CreatedAt: dbUser.CreatedAt,
		UpdatedAt: dbUser.UpdatedAt,
		DeletedAt: dbUser.DeletedAt,
	}
}

type userDB struct {
	// ID unique identifier of the user.
	ID primitive.ObjectID `bson:"_id"`

	// ClerkID is the identity provider id, unique among users.
	ClerkID string `bson:"clerk_id"`

	Email     string `bson:"email"`
	Username  string `bson:"username"`
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
	Photo     string `bson:"photo"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `bson:"updated_at"`

	// DeletedAt is the time at which the user was soft-deleted. Absent while the user is live.
	DeletedAt time.Time `bson:"deleted_at,omitempty"`
}
