package feedback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mbolis/quick-feedback/model"
)

// MinOptions is the least number of options a radio or checkbox question may have.
const MinOptions = 2

// QuestionInput is a question as submitted by a form designer.
// ID is only honoured when it names a question the form already has.
type QuestionInput struct {
	ID       string   `json:"id,omitempty"`
	Text     string   `json:"questionText"`
	Type     string   `json:"questionType"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
	Order    int      `json:"order"`
}

// IDFunc mints identities for new questions.
type IDFunc func() string

func NewID() string { return uuid.NewString() }

// BuildQuestions turns raw question descriptors into the question list of a form.
// Questions whose ID matches one in existing keep it; all others get a fresh identity
// from newID. Missing orders default to the 1-based position. The result is sorted by order.
func BuildQuestions(raw []QuestionInput, existing []model.Question, newID IDFunc) ([]model.Question, error) {
	if newID == nil {
		newID = NewID
	}
	if len(raw) == 0 {
		return nil, NewValidationError(ReasonInvalidQuestion, "questions", "at least one question is required")
	}

	known := make(map[string]bool, len(existing))
	for _, q := range existing {
		known[q.ID] = true
	}

	var errs []FieldError
	fail := func(i int, format string, args ...any) {
		errs = append(errs, FieldError{
			Reason:  ReasonInvalidQuestion,
			Field:   fmt.Sprintf("questions[%d]", i),
			Message: fmt.Sprintf("Question %d ", i+1) + fmt.Sprintf(format, args...),
		})
	}

	questions := make([]model.Question, 0, len(raw))
	usedIDs := map[string]int{}
	usedOrders := map[int]int{}
	for i, in := range raw {
		text := strings.TrimSpace(in.Text)
		qtype := model.QuestionType(strings.TrimSpace(in.Type))
		if text == "" || qtype == "" {
			fail(i, "is missing required fields")
			continue
		}
		if !qtype.Valid() {
			fail(i, "has unsupported type %q", qtype)
			continue
		}

		var options []string
		for _, opt := range in.Options {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
		if qtype.HasOptions() && len(options) < MinOptions {
			fail(i, "needs at least %d options", MinOptions)
			continue
		}

		order := in.Order
		if order == 0 {
			order = i + 1
		}
		if order < 0 {
			fail(i, "has a negative order")
			continue
		}
		if prev, dup := usedOrders[order]; dup {
			fail(i, "repeats the order of question %d", prev+1)
			continue
		}
		usedOrders[order] = i

		id := in.ID
		if id == "" || !known[id] {
			id = newID()
		} else if prev, dup := usedIDs[id]; dup {
			fail(i, "repeats the identity of question %d", prev+1)
			continue
		}
		usedIDs[id] = i

		questions = append(questions, model.Question{
			ID:       id,
			Text:     text,
			Type:     qtype,
			Options:  options,
			Required: in.Required,
			Order:    order,
		})
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
	return questions, nil
}

// QuestionInputs converts a form's questions back to descriptors, keeping identities.
func QuestionInputs(questions []model.Question) []QuestionInput {
	raw := make([]QuestionInput, len(questions))
	for i, q := range questions {
		raw[i] = QuestionInput{
			ID:       q.ID,
			Text:     q.Text,
			Type:     string(q.Type),
			Options:  append([]string(nil), q.Options...),
			Required: q.Required,
			Order:    q.Order,
		}
	}
	return raw
}
