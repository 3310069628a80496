package patient

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const birthDateLayout = "2006-01-02"

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{3,19}$`)

// Validator checks PatientRequest payloads.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator builds a Validator with the patient rules registered.
func NewValidator() *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
	}

	// Report fields by their JSON names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.validate.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		g := fl.Field().String()
		return g == "M" || g == "F"
	})
	_ = v.validate.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(birthDateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		today := v.now().UTC().Truncate(24 * time.Hour)
		return d.Before(today)
	})
	_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return v
}

// Validate returns a *ValidationError describing every rejected field, or nil.
func (v *Validator) Validate(req PatientRequest) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = reason(fe)
	}
	return ve
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "pastdate":
		return "must be a past date formatted YYYY-MM-DD"
	case "gender":
		return "must be M or F"
	case "phone":
		return "must contain digits with an optional leading +"
	default:
		return "is invalid"
	}
}
