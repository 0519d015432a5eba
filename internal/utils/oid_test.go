package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFlexID_UnmarshalPlainString(t *testing.T) {
	var f FlexID
	err := json.Unmarshal([]byte(`"665f1c2ab1e8f04d3c000001"`), &f)
	require.NoError(t, err)
	assert.Equal(t, "665f1c2ab1e8f04d3c000001", f.String())
}

func TestFlexID_UnmarshalOidWrapper(t *testing.T) {
	var f FlexID
	err := json.Unmarshal([]byte(`{"$oid":"665f1c2ab1e8f04d3c000001"}`), &f)
	require.NoError(t, err)
	assert.Equal(t, "665f1c2ab1e8f04d3c000001", f.String())
}

func TestFlexID_UnmarshalRejectsOtherShapes(t *testing.T) {
	var f FlexID
	err := json.Unmarshal([]byte(`42`), &f)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":"abc"}`), &f)
	assert.Error(t, err)
}

func TestFlexID_ObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	f := FlexID(oid.Hex())
	parsed, err := f.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, oid, parsed)

	_, err = FlexID("not-hex").ObjectID()
	assert.Error(t, err)
}

func TestFlexID_IsZero(t *testing.T) {
	var empty FlexID
	assert.True(t, empty.IsZero())
	assert.False(t, FlexID("665f1c2ab1e8f04d3c000001").IsZero())
}

func TestUnwrapID(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.Equal(t, "abc", UnwrapID("abc"))
	assert.Equal(t, "abc", UnwrapID(FlexID("abc")))
	assert.Equal(t, oid.Hex(), UnwrapID(oid))
	assert.Equal(t, "abc", UnwrapID(map[string]interface{}{"$oid": "abc"}))
	assert.Equal(t, "", UnwrapID(map[string]interface{}{"id": "abc"}))
	assert.Equal(t, "", UnwrapID(42))
}
