package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestSortAddsSecondaryKey(t *testing.T) {
	stage := Sort("createdAt", true)
	require.Len(t, stage, 1)
	assert.Equal(t, "$sort", stage[0].Key)

	keys, ok := stage[0].Value.(bson.D)
	require.True(t, ok)
	require.Len(t, keys, 2)
	assert.Equal(t, "createdAt", keys[0].Key)
	assert.Equal(t, -1, keys[0].Value)
	assert.Equal(t, "_id", keys[1].Key)
	assert.Equal(t, -1, keys[1].Value)
}

func TestSortAscending(t *testing.T) {
	stage := Sort("views", false)
	keys := stage[0].Value.(bson.D)
	assert.Equal(t, 1, keys[0].Value)
}

func TestSortByIDHasNoDuplicateKey(t *testing.T) {
	stage := Sort("_id", true)
	keys := stage[0].Value.(bson.D)
	require.Len(t, keys, 1)
	assert.Equal(t, "_id", keys[0].Key)
}

func TestLookupShape(t *testing.T) {
	stage := Lookup("users", "owner", "_id", "ownerDetails")
	require.Equal(t, "$lookup", stage[0].Key)

	spec := stage[0].Value.(bson.M)
	assert.Equal(t, "users", spec["from"])
	assert.Equal(t, "owner", spec["localField"])
	assert.Equal(t, "_id", spec["foreignField"])
	assert.Equal(t, "ownerDetails", spec["as"])
	assert.NotContains(t, spec, "pipeline")
}

func TestLookupOwnerSummary(t *testing.T) {
	stages := LookupOwnerSummary("owner", "owner")
	require.Len(t, stages, 2)

	spec := stages[0][0].Value.(bson.M)
	assert.Equal(t, "users", spec["from"])
	sub, ok := spec["pipeline"]
	require.True(t, ok)
	require.NotEmpty(t, sub)

	// The joined array is reduced to a single embedded document.
	assert.Equal(t, "$addFields", stages[1][0].Key)
	fields := stages[1][0].Value.(bson.M)
	assert.Equal(t, bson.M{"$first": "$owner"}, fields["owner"])
}

func TestOwnerSummaryExcludesCredentials(t *testing.T) {
	assert.NotContains(t, OwnerSummaryFields, "password")
	assert.NotContains(t, OwnerSummaryFields, "refreshToken")
	assert.NotContains(t, OwnerSummaryFields, "email")
}

func TestReplaceRoot(t *testing.T) {
	stage := ReplaceRoot("$videoDetails")
	assert.Equal(t, "$replaceRoot", stage[0].Key)
	assert.Equal(t, bson.M{"newRoot": "$videoDetails"}, stage[0].Value)
}
