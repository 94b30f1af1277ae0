package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// UserRepository implements ports.UserRepository on a MongoDB collection
type UserRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if _, err := r.collection.InsertOne(ctx, newUserDocument(user)); err != nil {
		return storeError("create_user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	if err != nil {
		return nil, storeError("get_user", err)
	}
	return r.decode("get_user", doc)
}

func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, sortByCreation())
	if err != nil {
		return nil, storeError("list_users", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("list_users", err)
	}
	users := make([]*entities.User, 0, len(docs))
	for _, doc := range docs {
		user, err := r.decode("list_users", doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id valueobjects.UserID, username, email string, updatedAt time.Time) (*entities.User, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"username": username, "email": email, "updatedAt": updatedAt}},
		returnAfter(),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	if err != nil {
		return nil, storeError("update_user", err)
	}
	return r.decode("update_user", doc)
}

func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return storeError("delete_user", err)
	}
	if res.DeletedCount == 0 {
		return pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	return nil
}

// LinkThought appends the id unless it is already in the list
func (r *UserRepository) LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "thoughts": bson.M{"$ne": thoughtID.String()}},
		bson.M{"$push": bson.M{"thoughts": thoughtID.String()}},
		returnAfter(),
	).Decode(&doc)
	user, _, err := r.setResult(ctx, "link_thought", id, doc, err)
	return user, err
}

func (r *UserRepository) UnlinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$pull": bson.M{"thoughts": thoughtID.String()}},
		returnAfter(),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	if err != nil {
		return nil, storeError("unlink_thought", err)
	}
	return r.decode("unlink_thought", doc)
}

func (r *UserRepository) AddFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "friends": bson.M{"$ne": friendID.String()}},
		bson.M{"$addToSet": bson.M{"friends": friendID.String()}},
		returnAfter(),
	).Decode(&doc)
	return r.setResult(ctx, "add_friend", id, doc, err)
}

func (r *UserRepository) RemoveFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "friends": friendID.String()},
		bson.M{"$pull": bson.M{"friends": friendID.String()}},
		returnAfter(),
	).Decode(&doc)
	return r.setResult(ctx, "remove_friend", id, doc, err)
}

func (r *UserRepository) setResult(ctx context.Context, op string, id valueobjects.UserID, doc userDocument, err error) (*entities.User, bool, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, err := r.GetByID(ctx, id)
		return current, false, err
	}
	if err != nil {
		return nil, false, storeError(op, err)
	}
	user, err := r.decode(op, doc)
	return user, err == nil, err
}

func (r *UserRepository) decode(op string, doc userDocument) (*entities.User, error) {
	user, err := doc.toEntity()
	if err != nil {
		r.logger.Error("Failed to decode user document", zap.String("operation", op), zap.Error(err))
		return nil, pkgerrors.NewStoreError(op, err)
	}
	return user, nil
}
