package shared

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testCustomer struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func TestReferenceBareID(t *testing.T) {
	id := uuid.New()
	var ref Reference[testCustomer]
	require.NoError(t, json.Unmarshal([]byte(`"`+id.String()+`"`), &ref))
	require.Equal(t, id, ref.ID())
	_, ok := ref.Resolved()
	require.False(t, ok)
}

func TestReferenceEmbeddedObject(t *testing.T) {
	id := uuid.New()
	payload := `{"id":"` + id.String() + `","name":"Sharma Traders"}`
	var ref Reference[testCustomer]
	require.NoError(t, json.Unmarshal([]byte(payload), &ref))
	require.Equal(t, id, ref.ID())
	resolved, ok := ref.Resolved()
	require.True(t, ok)
	require.Equal(t, "Sharma Traders", resolved.Name)
}

func TestReferenceRejectsGarbage(t *testing.T) {
	var ref Reference[testCustomer]
	require.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &ref))
	require.Error(t, json.Unmarshal([]byte(`{"name":"missing id"}`), &ref))
	require.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestReferenceMarshalsAsID(t *testing.T) {
	id := uuid.New()
	ref := RefResolved(id, testCustomer{ID: id, Name: "x"})
	out, err := json.Marshal(ref)
	require.NoError(t, err)
	require.JSONEq(t, `"`+id.String()+`"`, string(out))
}
