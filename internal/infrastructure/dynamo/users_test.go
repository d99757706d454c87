package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tuition-notify/internal/domain"
)

func TestGetByStudentID_NotFound(t *testing.T) {
	db := new(mockDB)
	db.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewUserRepo(db, "users").GetByStudentID(context.Background(), "s404")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveTokens_DeletesFromSet(t *testing.T) {
	db := new(mockDB)
	db.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		ss, ok := in.ExpressionAttributeValues[":t"].(*types.AttributeValueMemberSS)
		return ok && *in.UpdateExpression == "DELETE push_tokens :t REMOVE latest_push_token" &&
			assert.ObjectsAreEqual([]string{"bad1", "bad2"}, ss.Value)
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := NewUserRepo(db, "users").RemoveTokens(context.Background(), "u1", []string{"bad1", "bad2"}, true)

	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRemoveTokens_NothingToRemove(t *testing.T) {
	db := new(mockDB)
	require.NoError(t, NewUserRepo(db, "users").RemoveTokens(context.Background(), "u1", nil, false))
	db.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}
