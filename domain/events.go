package domain

const (
	AccommodationCreatedQueue = "accommodation-created"
	UsernameUpdatedExchange   = "username-updated"
	UserDeletedExchange       = "user-deleted"
)

type AccommodationCreated struct {
	AccommodationID    string     `json:"accommodationId"`
	OwnerUsername      string     `json:"ownerUsername"`
	PriceLevel         PriceLevel `json:"priceLevel"`
	ConfirmationNeeded bool       `json:"confirmationNeeded"`
	Location           string     `json:"location"`
	MinCapacity        int        `json:"minCapacity"`
	MaxCapacity        int        `json:"maxCapacity"`
}

func NewAccommodationCreated(a *Accommodation) AccommodationCreated {
	return AccommodationCreated{
		AccommodationID:    a.ID.Hex(),
		OwnerUsername:      a.OwnerUsername,
		PriceLevel:         a.PriceLevel,
		ConfirmationNeeded: a.ConfirmationNeeded,
		Location:           a.Location,
		MinCapacity:        a.MinCapacity,
		MaxCapacity:        a.MaxCapacity,
	}
}

type UsernameChange struct {
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
}

type UserDeleted struct {
	Username string `json:"username"`
}
