package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// NewValidator create a new Validator
func NewValidator() *PlaygroundV10 {
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	en_translations.RegisterDefaultTranslations(validate, trans)
	registerMaxBytes(validate, trans)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			name = fld.Tag.Get("yaml")
			if name == "-" || name == "" {
				return ""
			}
		}
		return name
	})
	return &PlaygroundV10{
		core:  validate,
		trans: trans,
	}
}

// registerMaxBytes adds the maxbytes tag, a length limit in bytes rather than runes (bcrypt input)
func registerMaxBytes(validate *validator.Validate, trans ut.Translator) {
	validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Errorf("maxbytes: bad limit %q", fl.Param()))
		}
		return fl.Field().Kind() == reflect.String && len(fl.Field().String()) <= limit
	})
	validate.RegisterTranslation("maxbytes", trans, func(tr ut.Translator) error {
		return tr.Add("maxbytes", "{0} must be at most {1} bytes long", true)
	}, func(tr ut.Translator, fe validator.FieldError) string {
		msg, _ := tr.T("maxbytes", fe.Field(), fe.Param())
		return msg
	})
}

// Struct validate struct
func (v PlaygroundV10) Struct(s interface{}) []*FieldError {
	var result []*FieldError
	validate := v.core
	if err := validate.Struct(s); err != nil {
		verr, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*FieldError{NewFieldError("", err.Error())}
		}
		for _, item := range verr {
			result = append(result, NewFieldError(item.Field(), item.Translate(v.trans)))
		}
		return result
	}
	return nil
}

// Var validate a single value against tag
func (v PlaygroundV10) Var(varName string, s interface{}, tag string) []*FieldError {
	var result []*FieldError
	if err := v.core.Var(s, tag); err != nil {
		for _, item := range err.(validator.ValidationErrors) {
			msg := strings.TrimSpace(item.Translate(v.trans))
			result = append(result, NewFieldError(varName, varName+" "+msg))
		}
		return result
	}
	return nil
}

// Empty check if value is empty
func (v PlaygroundV10) Empty(varName string, s interface{}) []*FieldError {
	validate := v.core
	var result []*FieldError
	if err := validate.Var(s, "required"); err != nil {
		for range err.(validator.ValidationErrors) {
			msg := fmt.Sprintf("%s is required", varName)
			result = append(result, NewFieldError(varName, msg))
		}
		return result
	}
	return nil
}

// AllEmpty check if all fields are empty
//
// names and fields have one to one relationship respect to the order
func (v PlaygroundV10) AllEmpty(names []string, fields ...interface{}) *FieldError {
	if len(names) != len(fields) {
		panic(fmt.Errorf("number of name: %d, fields: %d", len(names), len(fields)))
	}

	validate := v.core
	nonEmpty := false
	for _, s := range fields {
		if err := validate.Var(s, "required"); err == nil {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return NewFieldError(strings.Join(names, ","), "One of the fields should not be empty")
	}
	return nil
}
