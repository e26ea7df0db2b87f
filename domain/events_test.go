package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewAccommodationCreated_WireFormat(t *testing.T) {
	id := primitive.NewObjectID()
	accommodation := &Accommodation{
		ID:                 id,
		Name:               "Cabin",
		Location:           "Lake",
		Benefits:           []Benefit{Wifi},
		Images:             []string{"a.jpg"},
		MinCapacity:        1,
		MaxCapacity:        4,
		PriceLevel:         PerGuest,
		OwnerUsername:      "alice",
		ConfirmationNeeded: true,
		RatingsArray:       []float64{},
	}

	data, err := json.Marshal(NewAccommodationCreated(accommodation))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, map[string]interface{}{
		"accommodationId":    id.Hex(),
		"ownerUsername":      "alice",
		"priceLevel":         "perGuest",
		"confirmationNeeded": true,
		"location":           "Lake",
		"minCapacity":        float64(1),
		"maxCapacity":        float64(4),
	}, decoded)
}

func TestUsernameChange_WireFormat(t *testing.T) {
	var change UsernameChange
	require.NoError(t, json.Unmarshal([]byte(`{"oldUsername":"alice","newUsername":"alicia"}`), &change))
	assert.Equal(t, UsernameChange{OldUsername: "alice", NewUsername: "alicia"}, change)

	var deleted UserDeleted
	require.NoError(t, json.Unmarshal([]byte(`{"username":"alice","email":"a@b.c"}`), &deleted))
	assert.Equal(t, "alice", deleted.Username)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, Host, ParseRole("Host"))
	assert.Equal(t, Host, ParseRole(" HOST "))
	assert.Equal(t, Guest, ParseRole("guest"))
	assert.Equal(t, Role(""), ParseRole(""))
}
