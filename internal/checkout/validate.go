package checkout

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/safar/artisan-storefront/internal/models"
)

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidationErrors collects every field problem so a form can show them all
// at once.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (es ValidationErrors) Is(target error) bool { return target == ErrValidation }

var ErrEmptyCart = &ValidationError{Field: "cart", Message: "cart is empty"}

var pinCode = regexp.MustCompile(`^[1-9][0-9]{5}$`)

var indianStates = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand",
	"Karnataka", "Kerala", "Madhya Pradesh", "Maharashtra", "Manipur",
	"Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab",
	"Rajasthan", "Sikkim", "Tamil Nadu", "Telangana", "Tripura",
	"Uttar Pradesh", "Uttarakhand", "West Bengal",
}

func canonicalState(s string) (string, bool) {
	for _, state := range indianStates {
		if strings.EqualFold(state, s) {
			return state, true
		}
	}
	return "", false
}

// ValidateAddress trims every field and returns the normalized address, or
// ValidationErrors listing each bad field.
func ValidateAddress(addr models.ShippingAddress) (models.ShippingAddress, error) {
	addr = models.ShippingAddress{
		HouseNo:    strings.TrimSpace(addr.HouseNo),
		Street:     strings.TrimSpace(addr.Street),
		City:       strings.TrimSpace(addr.City),
		State:      strings.TrimSpace(addr.State),
		PostalCode: strings.TrimSpace(addr.PostalCode),
	}

	var errs ValidationErrors
	required := []struct {
		field string
		value string
	}{
		{"houseNo", addr.HouseNo},
		{"street", addr.Street},
		{"city", addr.City},
		{"state", addr.State},
		{"postalCode", addr.PostalCode},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, &ValidationError{Field: r.field, Message: "is required"})
		}
	}

	if addr.State != "" {
		if state, ok := canonicalState(addr.State); ok {
			addr.State = state
		} else {
			errs = append(errs, &ValidationError{Field: "state", Message: "must be a valid Indian state"})
		}
	}
	if addr.PostalCode != "" && !pinCode.MatchString(addr.PostalCode) {
		errs = append(errs, &ValidationError{Field: "postalCode", Message: "must be a 6-digit PIN code"})
	}

	if len(errs) > 0 {
		return addr, errs
	}
	return addr, nil
}

// ParsePaymentMethod defaults to cash on delivery when s is empty.
func ParsePaymentMethod(s string) (models.PaymentMethod, error) {
	m := models.PaymentMethod(strings.TrimSpace(s))
	if m == "" {
		return models.PaymentCashOnDelivery, nil
	}
	if !m.Valid() {
		return "", &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unsupported payment method %q", s)}
	}
	return m, nil
}
