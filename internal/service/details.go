package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/storefront/internal/domain/models"
)

// кенийский формат: +254... или 0(1/7)...
var kePhoneRe = regexp.MustCompile(`^(?:\+254|0)(?:1|7)[0-9]{8}$`)

var detailsValidator = newDetailsValidator()

func newDetailsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ke_phone", func(fl validator.FieldLevel) bool {
		return kePhoneRe.MatchString(fl.Field().String())
	})
	return v
}

// ValidateDeliveryDetails нормализует и проверяет данные доставки.
// Возвращает *ValidationError по первому ошибочному полю
func ValidateDeliveryDetails(details models.DeliveryDetails) (models.DeliveryDetails, error) {
	details.PhoneNumber = strings.TrimSpace(details.PhoneNumber)
	details.Address = strings.TrimSpace(details.Address)
	details.OtherDetails = strings.TrimSpace(details.OtherDetails)

	err := detailsValidator.Struct(details)
	if err == nil {
		return details, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return details, err
	}
	fe := verrs[0]
	return details, &ValidationError{Field: fe.Field(), Message: detailsMessage(fe)}
}

func detailsMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "ke_phone":
		return "Invalid Kenyan phone number format"
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	default:
		return "Invalid value."
	}
}
