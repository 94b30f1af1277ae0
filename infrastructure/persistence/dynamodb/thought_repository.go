package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/core/valueobjects"
	pkgerrors "thoughtgraph/pkg/errors"
)

// ThoughtRepository implements ports.ThoughtRepository on DynamoDB
type ThoughtRepository struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewThoughtRepository creates a thought repository over the given table
func NewThoughtRepository(client DBClient, tableName string, logger *zap.Logger) *ThoughtRepository {
	return &ThoughtRepository{client: client, tableName: tableName, logger: logger}
}

// Create stores a new thought. An existing item with the same id is not overwritten.
func (r *ThoughtRepository) Create(ctx context.Context, thought *entities.Thought) error {
	av, err := attributevalue.MarshalMap(newThoughtItem(thought))
	if err != nil {
		return pkgerrors.NewStoreError("create_thought", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return pkgerrors.NewStoreError("create_thought", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if _, failed := conditionFailed(err); failed {
		return pkgerrors.NewStoreError("create_thought", err).WithDetail("reason", "thought id already exists")
	}
	if err != nil {
		r.logger.Error("Failed to put thought", zap.Error(err), zap.String("thoughtID", thought.ID().String()))
		return storeError("create_thought", err)
	}
	return nil
}

// GetByID reads a thought with a strongly consistent read
func (r *ThoughtRepository) GetByID(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            thoughtKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get_thought", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	return r.decode("get_thought", out.Item)
}

// GetByIDs reads the thoughts that exist, in the order of ids. Missing ids
// are skipped and duplicates are returned once.
func (r *ThoughtRepository) GetByIDs(ctx context.Context, ids []valueobjects.ThoughtID) ([]*entities.Thought, error) {
	unique := dedupeThoughtIDs(ids)
	keys := make([]map[string]types.AttributeValue, 0, len(unique))
	for _, id := range unique {
		keys = append(keys, thoughtKey(id.String()))
	}

	items, err := batchGet(ctx, r.client, r.tableName, keys)
	if err != nil {
		return nil, storeError("get_thoughts", err)
	}

	byID := make(map[valueobjects.ThoughtID]*entities.Thought, len(items))
	for _, item := range items {
		thought, err := r.decode("get_thoughts", item)
		if err != nil {
			return nil, err
		}
		byID[thought.ID()] = thought
	}

	thoughts := make([]*entities.Thought, 0, len(byID))
	for _, id := range unique {
		if t, ok := byID[id]; ok {
			thoughts = append(thoughts, t)
		}
	}
	return thoughts, nil
}

// List scans every thought item
func (r *ThoughtRepository) List(ctx context.Context) ([]*entities.Thought, error) {
	items, err := scanEntities(ctx, r.client, r.tableName, entityThought)
	if err != nil {
		return nil, storeError("list_thoughts", err)
	}
	thoughts := make([]*entities.Thought, 0, len(items))
	for _, item := range items {
		thought, err := r.decode("list_thoughts", item)
		if err != nil {
			return nil, err
		}
		thoughts = append(thoughts, thought)
	}
	sortThoughts(thoughts)
	return thoughts, nil
}

// UpdateText replaces the text and update time of an existing thought
func (r *ThoughtRepository) UpdateText(ctx context.Context, id valueobjects.ThoughtID, text string, updatedAt time.Time) (*entities.Thought, error) {
	update := expression.Set(expression.Name("ThoughtText"), expression.Value(text)).
		Set(expression.Name("UpdatedAt"), expression.Value(formatTime(updatedAt)))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, pkgerrors.NewStoreError("update_thought", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       thoughtKey(id.String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if _, failed := conditionFailed(err); failed {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	if err != nil {
		return nil, storeError("update_thought", err)
	}
	return r.decode("update_thought", out.Attributes)
}

// Delete removes a thought and returns it as it was
func (r *ThoughtRepository) Delete(ctx context.Context, id valueobjects.ThoughtID) (*entities.Thought, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          thoughtKey(id.String()),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, storeError("delete_thought", err)
	}
	if len(out.Attributes) == 0 {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	return r.decode("delete_thought", out.Attributes)
}

// DeleteBatch removes many thoughts with batch writes. Ids that do not exist
// are ignored.
func (r *ThoughtRepository) DeleteBatch(ctx context.Context, ids []valueobjects.ThoughtID) error {
	unique := dedupeThoughtIDs(ids)
	requests := make([]types.WriteRequest, 0, len(unique))
	for _, id := range unique {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: thoughtKey(id.String())},
		})
	}
	if err := batchWrite(ctx, r.client, r.tableName, requests); err != nil {
		r.logger.Error("Batch delete of thoughts failed", zap.Error(err), zap.Int("count", len(requests)))
		return storeError("delete_thoughts", err)
	}
	return nil
}

// AddReaction sets Reactions[id] only when the key is absent. When the
// condition fails the item as it was is returned with changed=false.
func (r *ThoughtRepository) AddReaction(ctx context.Context, id valueobjects.ThoughtID, reaction entities.Reaction) (*entities.Thought, bool, error) {
	value, err := attributevalue.Marshal(newReactionItem(reaction))
	if err != nil {
		return nil, false, pkgerrors.NewStoreError("add_reaction", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 thoughtKey(id.String()),
		UpdateExpression:    aws.String("SET #reactions.#rid = :reaction"),
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_not_exists(#reactions.#rid)"),
		ExpressionAttributeNames: map[string]string{
			"#reactions": "Reactions",
			"#rid":       reaction.ID().String(),
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reaction": value,
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return r.conditionalResult("add_reaction", id, out, err)
}

// RemoveReaction deletes Reactions[id] when the key is present
func (r *ThoughtRepository) RemoveReaction(ctx context.Context, id valueobjects.ThoughtID, reactionID valueobjects.ReactionID) (*entities.Thought, bool, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 thoughtKey(id.String()),
		UpdateExpression:    aws.String("REMOVE #reactions.#rid"),
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_exists(#reactions.#rid)"),
		ExpressionAttributeNames: map[string]string{
			"#reactions": "Reactions",
			"#rid":       reactionID.String(),
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return r.conditionalResult("remove_reaction", id, out, err)
}

// ClearReactions replaces the reaction map with an empty one
func (r *ThoughtRepository) ClearReactions(ctx context.Context, id valueobjects.ThoughtID) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 thoughtKey(id.String()),
		UpdateExpression:    aws.String("SET #reactions = :empty"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#reactions": "Reactions",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		},
	})
	if _, failed := conditionFailed(err); failed {
		return pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
	}
	if err != nil {
		return storeError("clear_reactions", err)
	}
	return nil
}

// conditionalResult interprets a set-membership update: success means the
// set changed, a failed condition on an existing item means it did not, and
// a failed condition without an item means the thought is gone.
func (r *ThoughtRepository) conditionalResult(op string, id valueobjects.ThoughtID, out *dynamodb.UpdateItemOutput, err error) (*entities.Thought, bool, error) {
	if old, failed := conditionFailed(err); failed {
		if len(old) == 0 {
			return nil, false, pkgerrors.NewNotFoundError(pkgerrors.EntityThought, id.String())
		}
		thought, err := r.decode(op, old)
		return thought, false, err
	}
	if err != nil {
		return nil, false, storeError(op, err)
	}
	thought, err := r.decode(op, out.Attributes)
	return thought, err == nil, err
}

func (r *ThoughtRepository) decode(op string, av map[string]types.AttributeValue) (*entities.Thought, error) {
	thought, err := unmarshalThought(av)
	if err != nil {
		r.logger.Error("Failed to decode thought item", zap.String("operation", op), zap.Error(err))
		return nil, pkgerrors.NewStoreError(op, err)
	}
	return thought, nil
}

func dedupeThoughtIDs(ids []valueobjects.ThoughtID) []valueobjects.ThoughtID {
	seen := make(map[valueobjects.ThoughtID]struct{}, len(ids))
	unique := make([]valueobjects.ThoughtID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
