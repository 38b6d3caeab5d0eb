package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	courseKeyTag   = "coursekey"
	courseKeyText  = "{0} must be a course run key (course-v1:ORG+COURSE+RUN)"
	courseKeyRegex = regexp.MustCompile(`^course-v1:[\w.\-~]+\+[\w.\-~]+\+[\w.\-~]+$`)

	usernameTag   = "username"
	usernameText  = "{0} may only contain letters, digits and @/./+/-/_ characters"
	usernameRegex = regexp.MustCompile(`^[\w.@+\-]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "{0} is required"
)

// NewValidator returns a validator and its english translator, both ready for use.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(courseKeyTag, courseKeyValidation)
	RegisterCustomTranslation(validate, translator, courseKeyTag, courseKeyText)

	_ = validate.RegisterValidation(usernameTag, usernameValidation)
	RegisterCustomTranslation(validate, translator, usernameTag, usernameText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// IsCourseKey reports whether s looks like a course run key.
func IsCourseKey(s string) bool {
	return courseKeyRegex.MatchString(s)
}

// Custom Global Validators

func courseKeyValidation(fl validator.FieldLevel) bool {
	return IsCourseKey(fl.Field().String())
}

func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}
