package question

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examiner/core"
)

var (
	qTypeTag  = "qtype"
	qTypeText = "must be one of: multiple_choice, single_choice, true_false, text"

	optionsRequiredTag  = "options_required"
	optionsRequiredText = "options are required for this question type"
)

// InitValidators registers the question validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(qTypeTag, qTypeValidation)
	core.RegisterCustomTranslation(validate, translator, qTypeTag, qTypeText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, optionsRequiredTag, optionsRequiredText)
}

func qTypeValidation(fl validator.FieldLevel) bool {
	qType := fl.Field().String()
	return qType == TypeText || HasOptions(qType)
}

// questionStructValidation requires options for choice questions.
func questionStructValidation(sl validator.StructLevel) {
	if nq, ok := sl.Current().Interface().(NewQuestion); ok {
		if HasOptions(nq.QuestionType) && len(nq.Options) == 0 {
			sl.ReportError(nq.Options, "options", "Options", optionsRequiredTag, "")
		}
	}
}
