package feedback

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mbolis/quick-feedback/model"
)

// AnswerInput is one submitted answer before validation.
type AnswerInput struct {
	QuestionID string            `json:"questionId"`
	Value      model.AnswerValue `json:"answer"`
}

// ValidateAnswers checks submitted answers against the form's questions and returns
// them normalized, in submission order, with question text and type snapshotted.
// Options of radio and checkbox questions are not enforced.
func ValidateAnswers(questions []model.Question, submitted []AnswerInput) ([]model.Answer, error) {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	answered := make(map[string]bool, len(submitted))
	answers := make([]model.Answer, 0, len(submitted))
	for i, in := range submitted {
		field := fmt.Sprintf("answers[%d]", i)

		q, ok := byID[in.QuestionID]
		if !ok {
			return nil, NewValidationError(ReasonUnknownQuestion, field,
				fmt.Sprintf("Invalid question ID %q", in.QuestionID))
		}
		if answered[q.ID] {
			return nil, NewValidationError(ReasonInvalidAnswer, field,
				fmt.Sprintf("Question %q is answered more than once", q.Text))
		}

		if in.Value.IsEmpty() {
			if q.Required {
				return nil, missingAnswer(field, q)
			}
			continue
		}

		value, err := NormalizeValue(q, in.Value)
		if err != nil {
			return nil, NewValidationError(ReasonInvalidAnswer, field,
				fmt.Sprintf("Question %q: %s", q.Text, err))
		}
		if q.Required && value.IsEmpty() {
			return nil, missingAnswer(field, q)
		}

		answered[q.ID] = true
		answers = append(answers, model.Answer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			QuestionType: q.Type,
			Value:        value,
		})
	}

	for _, q := range questions {
		if q.Required && !answered[q.ID] {
			return nil, missingAnswer("answers", q)
		}
	}
	return answers, nil
}

func missingAnswer(field string, q model.Question) error {
	return NewValidationError(ReasonMissingRequiredAnswer, field,
		fmt.Sprintf("Question %q is required", q.Text))
}

// NormalizeValue coerces v into the variant matching the question type:
// a string for text-like questions, a list for checkboxes and a number for
// numeric and rating questions.
func NormalizeValue(q model.Question, v model.AnswerValue) (model.AnswerValue, error) {
	switch q.Type {
	case model.QuestionCheckbox:
		switch v.Kind() {
		case model.KindList:
			items, _ := v.List()
			return model.ListValue(compact(items)), nil
		case model.KindString:
			s, _ := v.Str()
			return model.ListValue(compact(strings.Split(s, ","))), nil
		case model.KindNumber, model.KindBool:
			return model.ListValue([]string{v.String()}), nil
		}

	case model.QuestionNumber, model.QuestionRating:
		switch v.Kind() {
		case model.KindNumber:
			return v, nil
		case model.KindString:
			s, _ := v.Str()
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return model.AnswerValue{}, fmt.Errorf("%q is not a number", s)
			}
			return model.NumberValue(n), nil
		}

	default:
		switch v.Kind() {
		case model.KindString:
			return v, nil
		case model.KindNumber, model.KindBool:
			return model.StringValue(v.String()), nil
		}
	}
	return model.AnswerValue{}, fmt.Errorf("a %s answer is not valid for a %s question", v.Kind(), q.Type)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
