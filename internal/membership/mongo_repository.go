package membership

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const membersCollection = "members"

// memberDocument is the stored shape: the member plus its credential in one document.
type memberDocument struct {
	Member     `bson:",inline"`
	Credential Credential `bson:"credential"`
}

// MongoRepository stores members in MongoDB.
type MongoRepository struct {
	members *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{members: db.Collection(membersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepository) Insert(ctx context.Context, member *Member, credential *Credential) error {
	_, err := r.members.InsertOne(ctx, memberDocument{Member: *member, Credential: *credential})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Member, error) {
	var member Member
	err := r.members.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &member, nil
}

func (r *MongoRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.members.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count members: %w", err)
	}
	return n > 0, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*Member, error) {
	cursor, err := r.members.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "registered_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}

	members := make([]*Member, 0)
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	return members, nil
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id string, profile Profile) (*Member, error) {
	var member Member
	err := r.members.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"first_name": profile.FirstName,
			"last_name":  profile.LastName,
			"email":      profile.Email,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&member)

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrMemberNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("update member: %w", err)
	}
	return &member, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.members.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*Member, *Credential, error) {
	var doc memberDocument
	err := r.members.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find member by email: %w", err)
	}
	return &doc.Member, &doc.Credential, nil
}
