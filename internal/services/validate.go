package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirdesai22/cf-tracker/internal/models"
)

var ErrInvalidInput = errors.New("invalid input")

const handleTag = "cfhandle"

// Codeforces handles are 3 to 24 latin letters, digits, underscores, dashes or dots.
var handleRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,24}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(handleTag, func(fl validator.FieldLevel) bool {
		return handleRe.MatchString(fl.Field().String())
	})
	return v
}

// profile is the validated view of a student's roster fields.
type profile struct {
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone" validate:"omitempty,max=32"`
	Handle string `json:"codeforcesHandle" validate:"omitempty,cfhandle"`
}

func validateProfile(st models.Student) error {
	err := validate.Struct(profile{Name: st.Name, Email: st.Email, Phone: st.Phone, Handle: st.CodeforcesHandle})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return err
}
