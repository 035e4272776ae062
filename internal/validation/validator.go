// Package validation validates request DTOs with go-playground/validator and
// reports failures as a field → messages map suitable for a 422 response.
//
// Field keys follow the JSON tags of the request, with slice indexes written
// as path segments: items.0.item_id.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	personNamePattern = regexp.MustCompile(`^[A-Za-z ]+$`)
)

// Errors maps a field path to its messages
type Errors map[string][]string

// Error is returned when a request fails validation
type Error struct {
	Fields Errors
}

// New returns an empty validation error to collect field messages into
func New() *Error {
	return &Error{Fields: Errors{}}
}

// Field returns an error carrying a single field message
func Field(field, message string) *Error {
	e := New()
	e.Add(field, message)
	return e
}

// Add appends message to field
func (e *Error) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no messages were collected
func (e *Error) Empty() bool {
	return len(e.Fields) == 0
}

// Err returns e, or nil when it holds no messages
func (e *Error) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Fields[keys[0]][0]
}

// As extracts a *Error from err
func As(err error) (*Error, bool) {
	var ve *Error
	ok := errors.As(err, &ve)
	return ve, ok
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Money fields compare as numbers so gte=0 works on decimals.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		if err := v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
			return personNamePattern.MatchString(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register personname validator: %v", err))
		}

		validate = v
	})
	return validate
}

// Struct validates s and returns a *Error describing every failed field
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}

	out := New()
	for _, fe := range verrs {
		out.Add(fieldPath(fe.Namespace()), message(fe))
	}
	return out
}

// fieldPath turns CreateOrderRequest.items[0].item_id into items.0.item_id
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func displayName(fe validator.FieldError) string {
	return strings.ReplaceAll(fe.Field(), "_", " ")
}

func message(fe validator.FieldError) string {
	name := displayName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s field must be greater than or equal to %s.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", name, fe.Param())
	case "len":
		return fmt.Sprintf("The %s field must be %s characters.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "number", "numeric":
		return fmt.Sprintf("The %s field must contain only digits.", name)
	case "datetime":
		return fmt.Sprintf("The %s field must match the format %s.", name, fe.Param())
	case "personname":
		return fmt.Sprintf("The %s field may only contain letters and spaces.", name)
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}
