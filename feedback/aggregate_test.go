package feedback

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-feedback/model"
)

var aggNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func response(id string, created time.Time, duration float64, s model.Sentiment, st model.Status, p model.Priority, answers ...model.Answer) model.Response {
	return model.Response{
		ID:             id,
		CreatedAt:      created,
		SubmissionTime: model.SubmissionTime{Duration: duration},
		Sentiment:      s,
		Status:         st,
		Priority:       p,
		Answers:        answers,
	}
}

func sampleResponses() []model.Response {
	return []model.Response{
		response("r1", aggNow.Add(-time.Hour), 30, model.SentimentPositive, model.StatusSubmitted, model.PriorityHigh,
			model.Answer{QuestionID: "radio", Value: model.StringValue("A")},
			model.Answer{QuestionID: "notes", Value: model.StringValue("great")}),
		response("r2", aggNow.Add(-26*time.Hour), 60, model.SentimentPositive, model.StatusApproved, model.PriorityMedium,
			model.Answer{QuestionID: "radio", Value: model.StringValue("B")}),
		response("r3", aggNow.Add(-10*24*time.Hour), 90, model.SentimentNegative, model.StatusSubmitted, model.PriorityMedium,
			model.Answer{QuestionID: "radio", Value: model.StringValue("A")}),
	}
}

func TestAggregate_Summary(t *testing.T) {
	s := Aggregate(sampleResponses(), nil, aggNow)

	assert.Equal(t, 3, s.TotalResponses)
	assert.Equal(t, 2, s.RecentResponses)
	assert.Equal(t, 60.0, s.AverageCompletionTime)
	assert.Equal(t, map[model.Sentiment]int{model.SentimentPositive: 2, model.SentimentNegative: 1}, s.SentimentDistribution)
	assert.Equal(t, map[model.Status]int{model.StatusSubmitted: 2, model.StatusApproved: 1}, s.StatusDistribution)
	assert.Equal(t, map[model.Priority]int{model.PriorityHigh: 1, model.PriorityMedium: 2}, s.PriorityDistribution)
	assert.Equal(t, map[string]int{"2024-03-15": 1, "2024-03-14": 1, "2024-03-05": 1}, s.DailyTrend)
	assert.Nil(t, s.QuestionAnalytics)
}

func TestAggregate_AbsentCategoriesHaveNoKey(t *testing.T) {
	s := Aggregate(sampleResponses(), nil, aggNow)

	_, ok := s.SentimentDistribution[model.SentimentNeutral]
	assert.False(t, ok)
	_, ok = s.StatusDistribution[model.StatusRejected]
	assert.False(t, ok)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, []model.Question{}, aggNow)

	assert.Equal(t, 0, s.TotalResponses)
	assert.Equal(t, 0.0, s.AverageCompletionTime)
	assert.False(t, math.IsNaN(s.AverageCompletionTime))
	assert.Empty(t, s.DailyTrend)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"averageCompletionTime":0`)
	assert.Contains(t, string(out), `"sentimentDistribution":{}`)
}

func TestAggregate_QuestionRollups(t *testing.T) {
	s := Aggregate(sampleResponses(), sampleQuestions, aggNow)
	require.Len(t, s.QuestionAnalytics, len(sampleQuestions))

	radio := s.QuestionAnalytics[0]
	assert.Equal(t, "radio", radio.QuestionID)
	assert.Equal(t, "Pick one", radio.QuestionText)
	assert.Equal(t, 3, radio.ResponseCount)
	assert.Equal(t, []model.AnswerValue{
		model.StringValue("A"), model.StringValue("B"), model.StringValue("A"),
	}, radio.Answers)

	notes := s.QuestionAnalytics[1]
	assert.Equal(t, 1, notes.ResponseCount)
	assert.Equal(t, []model.AnswerValue{model.StringValue("great")}, notes.Answers)

	score := s.QuestionAnalytics[2]
	assert.Equal(t, 0, score.ResponseCount)
	assert.NotNil(t, score.Answers)
	assert.Empty(t, score.Answers)
}

func TestAggregate_Idempotent(t *testing.T) {
	responses := sampleResponses()

	first, err := json.Marshal(Aggregate(responses, sampleQuestions, aggNow))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(responses, sampleQuestions, aggNow))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, sampleResponses(), responses, "input must not be mutated")
}
