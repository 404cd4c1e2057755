package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/auth"
)

const (
	// UsernameMaxLength is the maximum length of a username
	UsernameMaxLength = 150
	// EmailMaxLength is the maximum length of an email address
	EmailMaxLength = 254
	// NameMaxLength is the maximum length of a category, genre or title name
	NameMaxLength = 256
	// SlugMaxLength is the maximum length of a category or genre slug
	SlugMaxLength = 50
	// ReservedUsername is the path segment used for the self-profile endpoint
	ReservedUsername = "me"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+\z`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var validate *validator.Validate

// now is swapped in tests that need a fixed current year
var now = time.Now

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages line up with the request body
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("username", validateUsername)
	_ = validate.RegisterValidation("notme", validateNotReserved)
	_ = validate.RegisterValidation("slug", validateSlug)
	_ = validate.RegisterValidation("notfuture", validateNotFuture)
	_ = validate.RegisterValidation("role", validateRole)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func validateNotReserved(fl validator.FieldLevel) bool {
	return !IsReservedUsername(fl.Field().String())
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func validateNotFuture(fl validator.FieldLevel) bool {
	return fl.Field().Int() <= int64(now().Year())
}

func validateRole(fl validator.FieldLevel) bool {
	return auth.Role(fl.Field().String()).Valid()
}

// IsReservedUsername reports whether name collides with the "me" path segment
func IsReservedUsername(name string) bool {
	return strings.EqualFold(name, ReservedUsername)
}

// Struct validates a tagged struct. It returns nil or a *apperrors.ValidationError.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate payload: %w", err)
	}

	verr := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fieldName(fe), message(fe))
	}
	return verr
}

// Var validates a single value against a tag list, reporting failures under field
func Var(field string, value interface{}, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate %s: %w", field, err)
	}

	verr := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(field, message(fe))
	}
	return verr
}

// fieldName strips slice indexes so genre[2] reports as genre
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notme":
		return fmt.Sprintf("Username %q is reserved.", ReservedUsername)
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "notfuture":
		return "Year cannot be in the future."
	case "role":
		return fmt.Sprintf("Must be one of: %s, %s, %s.", auth.RoleUser, auth.RoleModerator, auth.RoleAdmin)
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
