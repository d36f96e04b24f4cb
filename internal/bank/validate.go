// Package bank loads question banks and validates them against the closed question schema.
package bank

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/khota/quizrunner/internal/domain"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = stderrors.New("invalid question bank")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return domain.Difficulty(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(correctIndexInRange, domain.Question{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func correctIndexInRange(sl validator.StructLevel) {
	q := sl.Current().Interface().(domain.Question)
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		sl.ReportError(q.CorrectIndex, "correct_index", "CorrectIndex", "in_range", "")
	}
}

// ValidateQuestions checks every question and rejects duplicate IDs.
func ValidateQuestions(qs []domain.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalid)
	}

	seen := make(map[string]int, len(qs))
	for i, q := range qs {
		if err := validate.Struct(q); err != nil {
			return fmt.Errorf("%w: question %d (%q): %s", ErrInvalid, i+1, q.ID, describe(err))
		}

		if j, ok := seen[q.ID]; ok {
			return fmt.Errorf("%w: question %d duplicates id %q of question %d", ErrInvalid, i+1, q.ID, j+1)
		}
		seen[q.ID] = i
	}

	return nil
}

// ValidateBank checks the bank header and all of its questions.
func ValidateBank(b domain.Bank) error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: missing bank id", ErrInvalid)
	}
	if b.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: bank %q: negative time limit", ErrInvalid, b.ID)
	}

	if err := ValidateQuestions(b.Questions); err != nil {
		return fmt.Errorf("bank %q: %w", b.ID, err)
	}

	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}

	return strings.Join(msgs, "; ")
}
