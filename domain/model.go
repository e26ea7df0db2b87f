package domain

import (
	"encoding/json"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Accommodation struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Location           string             `bson:"location" json:"location"`
	Benefits           []Benefit          `bson:"benefits" json:"benefits"`
	Images             []string           `bson:"images" json:"images"`
	MinCapacity        int                `bson:"minCapacity" json:"minCapacity"`
	MaxCapacity        int                `bson:"maxCapacity" json:"maxCapacity"`
	PriceLevel         PriceLevel         `bson:"priceLevel" json:"priceLevel"`
	OwnerUsername      string             `bson:"ownerUsername" json:"ownerUsername"`
	ConfirmationNeeded bool               `bson:"confirmationNeeded" json:"confirmationNeeded"`
	Rating             float64            `bson:"rating" json:"rating"`
	RatingsArray       []float64          `bson:"ratingsArray" json:"ratingsArray"`
}

type PriceLevel string

const (
	PerGuest         PriceLevel = "perGuest"
	PerAccommodation PriceLevel = "perAccommodation"
)

type Benefit string

const (
	Wifi      Benefit = "wifi"
	Parking   Benefit = "parking"
	Pool      Benefit = "pool"
	Gym       Benefit = "gym"
	Breakfast Benefit = "breakfast"
	AC        Benefit = "ac"
)

type Role string

const (
	Host  Role = "HOST"
	Guest Role = "GUEST"
)

// ParseRole accepts the identity service spelling ("Host") as well as "HOST".
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

type LoggedUser struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u *LoggedUser) UnmarshalJSON(data []byte) error {
	var raw struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		UserType string `json:"userType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Username = raw.Username
	u.Role = ParseRole(raw.Role)
	if u.Role == "" {
		u.Role = ParseRole(raw.UserType)
	}
	return nil
}

// RatingInput keeps Rating as a pointer so an absent field can be told apart from 0.
type RatingInput struct {
	Rating *float64 `json:"rating"`
}

func (a *Accommodation) ToJSON(w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(a)
}

func (i *AccommodationInput) FromJSON(r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(i)
}
