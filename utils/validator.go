package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	reMoney  = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// money accepts a positive decimal string with at most two decimals
	_ = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !reMoney.MatchString(s) {
			return false
		}
		d, err := decimal.NewFromString(s)
		return err == nil && d.IsPositive()
	})
}

// ValidateStruct runs the `validate` tags of s and returns the first failure
// in a client friendly form.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "email":
		return fmt.Errorf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	case "money":
		return fmt.Errorf("%s must be a positive amount with at most two decimals", fe.Field())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}
