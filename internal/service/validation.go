package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"terminusa/internal/model"
)

// Credential length limits in bytes. bcrypt ignores input past 72 bytes.
const (
	MinCredentialBytes = 8
	MaxCredentialBytes = 72
)

// registration is the validated input of AccountService.Register.
type registration struct {
	Handle     string `validate:"required,min=4,max=32,handle"`
	Credential string `validate:"required,credential"`
}

// listingRequest is the validated input of MarketService.CreateListing.
type listingRequest struct {
	Item      string `validate:"required,max=64,itemname"`
	Quantity  int64  `validate:"gt=0"`
	UnitPrice int64  `validate:"gt=0"`
}

// itemRequest is the validated input of inventory mutations.
type itemRequest struct {
	Item     string `validate:"required,max=64,itemname"`
	Quantity int64  `validate:"gt=0"`
}

// inventoryEntry is one validated entry of an inventory snapshot passed to
// AccountService.Save. Names follow the same rules as itemRequest so that
// every saved entry stays reachable by the item operations.
type inventoryEntry struct {
	Item     string `validate:"required,max=64,itemname"`
	Quantity int64  `validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("handle", validateHandle)
	_ = v.RegisterValidation("credential", validateCredential)
	_ = v.RegisterValidation("itemname", validateItemName)
	return v
}

// validateHandle rejects whitespace and control characters anywhere in a handle.
func validateHandle(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func validateCredential(fl validator.FieldLevel) bool {
	n := len(fl.Field().String())
	return n >= MinCredentialBytes && n <= MaxCredentialBytes
}

// validateItemName allows inner spaces but no surrounding whitespace.
func validateItemName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) != s {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// validateStruct runs tag validation and maps failures to model.ErrInvalidArgument.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return invalidArgument(err)
	}
	return nil
}

// validatePositive checks a single amount.
func validatePositive(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", model.ErrInvalidArgument, name, v)
	}
	return nil
}

func invalidArgument(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be positive", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must not be negative", field))
		case "handle":
			msgs = append(msgs, field+" must not contain whitespace")
		case "credential":
			msgs = append(msgs, fmt.Sprintf("%s must be %d-%d bytes", field, MinCredentialBytes, MaxCredentialBytes))
		case "itemname":
			msgs = append(msgs, field+" contains invalid characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidArgument, strings.Join(msgs, "; "))
}
