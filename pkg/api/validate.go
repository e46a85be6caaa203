package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/splitledger/internal/apperrors"
	"github.com/mmynk/splitledger/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go ones.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("money_positive", validateMoneyPositive)
	_ = v.RegisterValidation("account_category", validateAccountCategory)
	return v
}

func validateMoneyPositive(fl validator.FieldLevel) bool {
	money, ok := fl.Field().Interface().(models.Money)
	return ok && money > 0 && money <= models.MaxAmount
}

func validateAccountCategory(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "cash", "bank", "card", "savings", "other":
		return true
	}
	return false
}

// Validate checks a request message against its struct tags. A failed
// money_positive rule is reported as a non-positive amount; every other
// failure is invalid input naming the offending fields.
func Validate(msg any) error {
	err := validate.Struct(msg)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Not a struct; nothing to check.
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "money_positive" {
			if amount, ok := fe.Value().(models.Money); ok && amount > 0 {
				return apperrors.WithMessage(apperrors.ErrAmountOutOfRange,
					fmt.Sprintf("%s must be at most %s", fe.Field(), models.MaxAmount))
			}
			return apperrors.WithMessage(apperrors.ErrNonPositiveAmount,
				fmt.Sprintf("%s must be greater than zero", fe.Field()))
		}
		problems = append(problems, describe(fe))
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	case "account_category":
		return fe.Field() + " must be one of cash, bank, card, savings, other"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
