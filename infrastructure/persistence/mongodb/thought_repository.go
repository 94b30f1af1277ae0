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

// ThoughtRepository implements ports.ThoughtRepository on a MongoDB collection
type ThoughtRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func (r *ThoughtRepository) Create(ctx context.Context, thought *entities.Thought) error {
	if _, err := r.collection.InsertOne(ctx, newThoughtDocument(thought)); err != nil {
		return storeError("create_thought", err)
	}
	return nil
}

func (r *ThoughtRepository) GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	var doc thoughtDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	if err != nil {
		return nil, storeError("get_thought", err)
	}
	return r.decode("get_thought", doc)
}

func (r *ThoughtRepository) GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": valueobjects.ThoughtIDsToStrings(ids)}})
	if err != nil {
		return nil, storeError("get_thoughts", err)
	}
	var docs []thoughtDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("get_thoughts", err)
	}

	byID := make(map[string]*entities.Thought, len(docs))
	for _, doc := range docs {
		thought, err := r.decode("get_thoughts", doc)
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = thought
	}

	thoughts := make([]*entities.Thought, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id.String()]; ok {
			thoughts = append(thoughts, t)
			delete(byID, id.String())
		}
	}
	return thoughts, nil
}

func (r *ThoughtRepository) List(ctx context.Context) ([]*entities.Thought, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, sortByCreation())
	if err != nil {
		return nil, storeError("list_thoughts", err)
	}
	var docs []thoughtDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("list_thoughts", err)
	}
	thoughts := make([]*entities.Thought, 0, len(docs))
	for _, doc := range docs {
		thought, err := r.decode("list_thoughts", doc)
		if err != nil {
			return nil, err
		}
		thoughts = append(thoughts, thought)
	}
	return thoughts, nil
}

func (r *ThoughtRepository) UpdateText(ctx context.Context, id valueobjects.ThoughtID, text string, updatedAt time.Time) (*entities.Thought, error) {
	var doc thoughtDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"thoughtText": text, "updatedAt": updatedAt}},
		returnAfter(),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	if err != nil {
		return nil, storeError("update_thought", err)
	}
	return r.decode("update_thought", doc)
}

func (r *ThoughtRepository) Delete(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	var doc thoughtDocument
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	if err != nil {
		return nil, storeError("delete_thought", err)
	}
	return r.decode("delete_thought", doc)
}

func (r *ThoughtRepository) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": valueobjects.ThoughtIDsToStrings(ids)}})
	if err != nil {
		return storeError("delete_thoughts", err)
	}
	r.logger.Debug("Deleted thoughts", zap.Int64("deleted", res.DeletedCount), zap.Int("requested", len(ids)))
	return nil
}

// AddReaction pushes the reaction only when no entry has its id
func (r *ThoughtRepository) AddReaction(ctx context.Context, id valueobjects.ThoughtID, reaction entities.Reaction) (*entities.Thought, bool, error) {
	var doc thoughtDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "reactions.reactionId": bson.M{"$ne": reaction.ID().String()}},
		bson.M{"$push": bson.M{"reactions": newReactionDocument(reaction)}},
		returnAfter(),
	).Decode(&doc)
	return r.setResult(ctx, "add_reaction", id, doc, err)
}

// RemoveReaction pulls every entry with the id
func (r *ThoughtRepository) RemoveReaction(ctx context.Context, id valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, bool, error) {
	var doc thoughtDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "reactions.reactionId": reactionID.String()},
		bson.M{"$pull": bson.M{"reactions": bson.M{"reactionId": reactionID.String()}}},
		returnAfter(),
	).Decode(&doc)
	return r.setResult(ctx, "remove_reaction", id, doc, err)
}

func (r *ThoughtRepository) ClearReactions(ctx context.Context, id valueobjects.ThoughtID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"reactions": bson.A{}}},
	)
	if err != nil {
		return storeError("clear_reactions", err)
	}
	if res.MatchedCount == 0 {
		return pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	return nil
}

// setResult interprets a guarded set update. No match means either the
// thought is gone or the guard held the set unchanged; a read tells them apart.
func (r *ThoughtRepository) setResult(ctx context.Context, op string, id valueobjects.ThoughtID, doc thoughtDocument, err error) (*entities.Thought, bool, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, err := r.GetByID(ctx, id)
		return current, false, err
	}
	if err != nil {
		return nil, false, storeError(op, err)
	}
	thought, err := r.decode(op, doc)
	return thought, err == nil, err
}

func (r *ThoughtRepository) decode(op string, doc thoughtDocument) (*entities.Thought, error) {
	thought, err := doc.toEntity()
	if err != nil {
		r.logger.Error("Failed to decode thought document", zap.String("operation", op), zap.Error(err))
		return nil, pkgerrors.NewStoreError(op, err)
	}
	return thought, nil
}
