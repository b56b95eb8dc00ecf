package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/store"
)

func TestFindOptions(t *testing.T) {
	fo := findOptions(store.FindOptions{
		Projection: []string{"name", "age"},
		Sort:       []string{"-age", "name", ""},
		Skip:       5,
		Limit:      10,
	})

	assert.Equal(t, bson.M{"name": 1, "age": 1}, fo.Projection)
	assert.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}}, fo.Sort)
	require.NotNil(t, fo.Skip)
	assert.Equal(t, int64(5), *fo.Skip)
	require.NotNil(t, fo.Limit)
	assert.Equal(t, int64(10), *fo.Limit)
}

func TestFindOptionsEmpty(t *testing.T) {
	fo := findOptions(store.FindOptions{})

	assert.Nil(t, fo.Projection)
	assert.Nil(t, fo.Sort)
	assert.Nil(t, fo.Skip)
	assert.Nil(t, fo.Limit)
}
