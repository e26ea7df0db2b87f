package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type AccommodationInput struct {
	Name               string     `json:"name" validate:"required"`
	Location           string     `json:"location" validate:"required"`
	Benefits           []Benefit  `json:"benefits" validate:"required,min=1,unique,dive,oneof=wifi parking pool gym breakfast ac"`
	Images             []string   `json:"images" validate:"required,min=1,dive,required"`
	MinCapacity        int        `json:"minCapacity" validate:"required,gt=0"`
	MaxCapacity        int        `json:"maxCapacity" validate:"required,gt=0,gtefield=MinCapacity"`
	PriceLevel         PriceLevel `json:"priceLevel" validate:"required,oneof=perGuest perAccommodation"`
	ConfirmationNeeded Truthy     `json:"confirmationNeeded"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns a message naming the first offending field, or "" when the input is complete.
func (i *AccommodationInput) Validate() string {
	err := validate.Struct(i)
	if err == nil {
		return ""
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err.Error()
	}
	fe := fieldErrors[0]
	field := strings.SplitN(fe.Field(), "[", 2)[0]
	if fe.Tag() == "required" || fe.Tag() == "min" {
		return fmt.Sprintf("Missing %s parameter", field)
	}
	return fmt.Sprintf("Invalid %s parameter", field)
}

// Truthy decodes any JSON value into a bool the way a loosely typed client means it:
// false, 0, "" and null are false, everything else is true.
type Truthy bool

func (t *Truthy) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = Truthy(value)
	case float64:
		*t = value != 0
	case string:
		*t = value != ""
	default:
		*t = true
	}
	return nil
}
