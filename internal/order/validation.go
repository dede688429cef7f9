package order

import (
	"regexp"
	"strings"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
	"github.com/ariefcatur/toy-session-engine/internal/model"
)

// Pakistani mobile numbers, with or without the country prefix.
var phonePattern = regexp.MustCompile(`^(\+92|92|0)?3[0-9]{9}$`)

// NormalizePhone drops the spaces and dashes people type into phone numbers.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

// ValidateDelivery returns the first problem with d as a ValidationError.
func ValidateDelivery(d model.Delivery) error {
	switch {
	case strings.TrimSpace(d.PhoneNumber) == "":
		return apperr.Validation("phone number is required")
	case !ValidPhone(d.PhoneNumber):
		return apperr.Validation("phone number %q is not a valid mobile number", d.PhoneNumber)
	case strings.TrimSpace(d.Address) == "":
		return apperr.Validation("address is required")
	case strings.TrimSpace(d.City) == "":
		return apperr.Validation("city is required")
	case strings.TrimSpace(d.PostalCode) == "":
		return apperr.Validation("postal code is required")
	}
	return nil
}
