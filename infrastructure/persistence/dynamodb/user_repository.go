package dynamodb

import (
	"context"
	"strconv"
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

// maxUnlinkAttempts bounds the read-then-remove loop in UnlinkThought when
// concurrent writers keep shifting the list
const maxUnlinkAttempts = 3

// UserRepository implements ports.UserRepository on DynamoDB
type UserRepository struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewUserRepository creates a user repository over the given table
func NewUserRepository(client DBClient, tableName string, logger *zap.Logger) *UserRepository {
	return &UserRepository{client: client, tableName: tableName, logger: logger}
}

// Create stores a new user. An existing item with the same id is not overwritten.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	av, err := attributevalue.MarshalMap(newUserItem(user))
	if err != nil {
		return pkgerrors.NewStoreError("create_user", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return pkgerrors.NewStoreError("create_user", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if _, failed := conditionFailed(err); failed {
		return pkgerrors.NewStoreError("create_user", err).WithDetail("reason", "user id already exists")
	}
	if err != nil {
		r.logger.Error("Failed to put user", zap.Error(err), zap.String("userID", user.ID().String()))
		return storeError("create_user", err)
	}
	return nil
}

// GetByID reads a user with a strongly consistent read
func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            userKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get_user", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	return r.decode("get_user", out.Item)
}

// List scans every user item
func (r *UserRepository) List(ctx context.Context) ([]*entities.User, error) {
	items, err := scanEntities(ctx, r.client, r.tableName, entityUser)
	if err != nil {
		return nil, storeError("list_users", err)
	}
	users := make([]*entities.User, 0, len(items))
	for _, item := range items {
		user, err := r.decode("list_users", item)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	sortUsers(users)
	return users, nil
}

// UpdateProfile replaces username and email of an existing user
func (r *UserRepository) UpdateProfile(ctx context.Context, id valueobjects.UserID, username, email string, updatedAt time.Time) (*entities.User, error) {
	update := expression.Set(expression.Name("Username"), expression.Value(username)).
		Set(expression.Name("Email"), expression.Value(email)).
		Set(expression.Name("UpdatedAt"), expression.Value(formatTime(updatedAt)))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, pkgerrors.NewStoreError("update_user", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       userKey(id.String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if _, failed := conditionFailed(err); failed {
		return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	if err != nil {
		return nil, storeError("update_user", err)
	}
	return r.decode("update_user", out.Attributes)
}

// Delete removes a user item
func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          userKey(id.String()),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return storeError("delete_user", err)
	}
	if len(out.Attributes) == 0 {
		return pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
	}
	return nil
}

// LinkThought appends a thought id to the owner's list unless it is already there
func (r *UserRepository) LinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 userKey(id.String()),
		UpdateExpression:    aws.String("SET #thoughts = list_append(if_not_exists(#thoughts, :empty), :tids)"),
		ConditionExpression: aws.String("attribute_exists(PK) AND NOT contains(#thoughts, :tid)"),
		ExpressionAttributeNames: map[string]string{
			"#thoughts": "Thoughts",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":tids": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: thoughtID.String()},
			}},
			":tid": &types.AttributeValueMemberS{Value: thoughtID.String()},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	user, _, err := r.conditionalResult("link_thought", id, out, err)
	return user, err
}

// UnlinkThought removes a thought id from the owner's list. The index is
// read first and the removal is guarded by the value at that index, so a
// concurrent change to the list makes the write fail rather than remove the
// wrong entry; the read is then repeated.
func (r *UserRepository) UnlinkThought(ctx context.Context, id valueobjects.UserID, thoughtID valueobjects.ThoughtID) (*entities.User, error) {
	for attempt := 1; ; attempt++ {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		index := -1
		for i, tid := range user.ThoughtIDs() {
			if tid.Equals(thoughtID) {
				index = i
				break
			}
		}
		if index < 0 {
			return user, nil
		}

		path := "#thoughts[" + strconv.Itoa(index) + "]"
		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 userKey(id.String()),
			UpdateExpression:    aws.String("REMOVE " + path),
			ConditionExpression: aws.String(path + " = :tid"),
			ExpressionAttributeNames: map[string]string{
				"#thoughts": "Thoughts",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":tid": &types.AttributeValueMemberS{Value: thoughtID.String()},
			},
			ReturnValues:                        types.ReturnValueAllNew,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		if old, failed := conditionFailed(err); failed {
			if len(old) == 0 {
				return nil, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
			}
			if attempt == maxUnlinkAttempts {
				return nil, pkgerrors.NewStoreError("unlink_thought", err).WithDetail("reason", "thought list kept changing")
			}
			r.logger.Debug("Thought list changed during unlink, reading again",
				zap.String("userID", id.String()),
				zap.String("thoughtID", thoughtID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, storeError("unlink_thought", err)
		}
		return r.decode("unlink_thought", out.Attributes)
	}
}

// AddFriend adds an id to the Friends string set
func (r *UserRepository) AddFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 userKey(id.String()),
		UpdateExpression:    aws.String("ADD #friends :set"),
		ConditionExpression: aws.String("attribute_exists(PK) AND NOT contains(#friends, :fid)"),
		ExpressionAttributeNames: map[string]string{
			"#friends": "Friends",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":set": &types.AttributeValueMemberSS{Value: []string{friendID.String()}},
			":fid": &types.AttributeValueMemberS{Value: friendID.String()},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return r.conditionalResult("add_friend", id, out, err)
}

// RemoveFriend deletes an id from the Friends string set
func (r *UserRepository) RemoveFriend(ctx context.Context, id, friendID valueobjects.UserID) (*entities.User, bool, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 userKey(id.String()),
		UpdateExpression:    aws.String("DELETE #friends :set"),
		ConditionExpression: aws.String("attribute_exists(PK) AND contains(#friends, :fid)"),
		ExpressionAttributeNames: map[string]string{
			"#friends": "Friends",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":set": &types.AttributeValueMemberSS{Value: []string{friendID.String()}},
			":fid": &types.AttributeValueMemberS{Value: friendID.String()},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return r.conditionalResult("remove_friend", id, out, err)
}

// conditionalResult mirrors ThoughtRepository.conditionalResult for user items
func (r *UserRepository) conditionalResult(op string, id valueobjects.UserID, out *dynamodb.UpdateItemOutput, err error) (*entities.User, bool, error) {
	if old, failed := conditionFailed(err); failed {
		if len(old) == 0 {
			return nil, false, pkgerrors.NewNotFoundError(pkgerrors.EntityUser, id.String())
		}
		user, err := r.decode(op, old)
		return user, false, err
	}
	if err != nil {
		return nil, false, storeError(op, err)
	}
	user, err := r.decode(op, out.Attributes)
	return user, err == nil, err
}

func (r *UserRepository) decode(op string, av map[string]types.AttributeValue) (*entities.User, error) {
	user, err := unmarshalUser(av)
	if err != nil {
		r.logger.Error("Failed to decode user item", zap.String("operation", op), zap.Error(err))
		return nil, pkgerrors.NewStoreError(op, err)
	}
	return user, nil
}
