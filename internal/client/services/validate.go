package services

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/models"
)

// MaxFileSize is the largest media file the backend accepts.
const MaxFileSize = 10 << 20

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			var letter, digit bool
			for _, r := range fl.Field().String() {
				letter = letter || unicode.IsLetter(r)
				digit = digit || unicode.IsDigit(r)
			}
			return letter && digit
		})
		_ = v.RegisterValidation("maxsize", func(fl validator.FieldLevel) bool {
			info, err := os.Stat(fl.Field().String())
			return err == nil && info.Size() <= MaxFileSize
		})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			m := sl.Current().Interface().(models.MediaUpload)
			if _, ok := m.Type.ContentType(m.Path); !ok {
				sl.ReportError(m.Path, "path", "Path", "mediatype", string(m.Type))
			}
		}, models.MediaUpload{})
		validate = v
	})
	return validate
}

// validateForm checks form and turns failures into an ErrValidation
// carrying one message per field, keyed by the JSON field path.
func validateForm(form any) error {
	err := formValidator().Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string][]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fieldKey(fe)
		fields[key] = append(fields[key], fieldMessage(fe))
	}
	return &client.APIError{Kind: client.ErrValidation, Message: fieldMessage(fieldErrs[0]), Fields: fields}
}

func fieldKey(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

var requiredMessages = map[string]string{
	"LoginForm.Username":     "Username or email is required",
	"LoginForm.Password":     "Password is required",
	"RegisterForm.Email":     "Email is required",
	"RegisterForm.FirstName": "Full name is required",
	"RegisterForm.Username":  "Username is required",
	"RegisterForm.Password":  "Password is required",
	"RegisterForm.Password2": "Please confirm your password",
	"NewPost.Media":          "Add at least one photo or video",
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		if msg, ok := requiredMessages[fe.StructNamespace()]; ok {
			return msg
		}
		return "This field is required"
	case "email":
		return "Please enter a valid email"
	case "username":
		return "Username must be 3-30 characters (letters, numbers, underscore, dot)"
	case "password":
		return "Password must contain at least one letter and one number"
	case "eqfield":
		return "Passwords do not match"
	case "min":
		switch {
		case isList:
			return "Add at least one photo or video"
		case fe.Field() == "first_name":
			return "Name must be at least 2 characters"
		case fe.Field() == "password":
			return "Password must be at least 8 characters"
		}
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("You can attach up to %s files", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "file":
		return "File not found"
	case "maxsize":
		return "File size must be less than 10MB"
	case "oneof":
		return "Media type must be image or video"
	case "mediatype":
		return fmt.Sprintf("Unsupported %s file type", fe.Param())
	}
	return "Invalid value"
}
