package mongodb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
)

func TestTranslate(t *testing.T) {
	other := errors.New("socket closed")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no documents", in: mongo.ErrNoDocuments, want: repository.ErrNotFound},
		{name: "wrapped no documents", in: fmt.Errorf("find: %w", mongo.ErrNoDocuments), want: repository.ErrNotFound},
		{
			name: "duplicate key",
			in:   mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}},
			want: repository.ErrDuplicateKey,
		},
		{
			name: "write conflict",
			in:   mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}},
			want: repository.ErrConflict,
		},
		{name: "sentinel passes through", in: repository.ErrConflict, want: repository.ErrConflict},
		{name: "unknown", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslate_CommitResultUnknownIsNotRetryable(t *testing.T) {
	err := mongo.CommandError{Code: 50, Labels: []string{"UnknownTransactionCommitResult"}}
	assert.NotErrorIs(t, translate(err), repository.ErrConflict)
}

func TestVersionFilter(t *testing.T) {
	id := primitive.NewObjectID()

	assert.Equal(t, bson.M{"_id": id, "version": int64(3)}, versionFilter(id, 3))
	assert.Equal(t,
		bson.M{"_id": id, "version": bson.M{"$in": bson.A{int64(0), nil}}},
		versionFilter(id, 0),
		"first save must also match documents without a version field")
}

func TestVersionFilter_LegacyDocumentDecodesAsVersionZero(t *testing.T) {
	id := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{"_id": id, "name": "Ramesh", "pendingPayment": 500.0})
	require.NoError(t, err)

	var farmer models.Farmer
	require.NoError(t, bson.Unmarshal(raw, &farmer))
	assert.Equal(t, int64(0), farmer.Version)

	filter := versionFilter(farmer.ID, farmer.Version)
	assert.Contains(t, filter["version"].(bson.M)["$in"], nil)
}
