package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/quizlevel/quiz-service/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the quiz-specific custom rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with custom rules registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates a struct and converts failures to ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("quiz_level", validateQuizLevel)
	validate.RegisterValidation("quiz_topic", validateQuizTopic)
	validate.RegisterValidation("time_taken", validateTimeTaken)

	// Report json field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuizLevel(fl validator.FieldLevel) bool {
	level := fl.Field().Int()
	return level >= 1 && level <= 4
}

func validateQuizTopic(fl validator.FieldLevel) bool {
	topic := strings.TrimSpace(fl.Field().String())
	return topic != "" && len(topic) <= 50
}

func validateTimeTaken(fl validator.FieldLevel) bool {
	seconds := fl.Field().Int()
	return seconds >= 0 && seconds <= 3600
}
