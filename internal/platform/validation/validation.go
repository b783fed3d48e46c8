// Package validation wraps go-playground/validator with the catalog's custom rules
// and readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	flowerNamePattern   = regexp.MustCompile(`^[\p{L} _-]+$`)
	categoryNamePattern = regexp.MustCompile(`^[\p{L}\d\s/\-]+$`)
)

// Messages for rules whose wording is shown verbatim to operators.
const (
	MsgFlowerName   = "Flower name only contains characters, number, space, slash and dash!"
	MsgCategoryName = "Category name only contains characters, number, space, slash and dash!"
	MsgSoldQuantity = "Sold quantity field can't be greater than quantity field"
	MsgDistinctIDs  = "There can't be two categories that overlap"
)

// FieldError describes one failed rule.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// Error aggregates field failures. Its message is the first failure's message.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message
}

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New registers the custom rules:
//
//	flowername    letters, space, underscore, dash
//	categoryname  letters, digits, whitespace, slash, dash
//	objectid      24-hex Mongo ObjectID
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	mustRegister(v, "flowername", func(fl validator.FieldLevel) bool {
		return flowerNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "categoryname", func(fl validator.FieldLevel) bool {
		return categoryNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Struct validates s and returns *Error on rule failures.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out
}

// Var validates a single value against tag.
func (v *Validator) Var(field any, tag string) error {
	return v.v.Var(field, tag)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s field is required", field)
	case "flowername":
		return MsgFlowerName
	case "categoryname":
		return MsgCategoryName
	case "objectid":
		return fmt.Sprintf("Invalid %s id format", field)
	case "ltefield":
		if fe.Param() == "Quantity" {
			return MsgSoldQuantity
		}
		return fmt.Sprintf("%s field can't be greater than %s field", field, fe.Param())
	case "unique":
		return MsgDistinctIDs
	case "min", "gte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s can't be empty", field)
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s is not a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
