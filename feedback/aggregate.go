package feedback

import (
	"time"

	"github.com/mbolis/quick-feedback/model"
)

// RecentWindow is how far back a response still counts as recent.
const RecentWindow = 7 * 24 * time.Hour

// DayLayout keys the daily trend; days are taken in UTC.
const DayLayout = "2006-01-02"

type QuestionRollup struct {
	QuestionID    string              `json:"questionId"`
	QuestionText  string              `json:"questionText"`
	QuestionType  model.QuestionType  `json:"questionType"`
	ResponseCount int                 `json:"responseCount"`
	Answers       []model.AnswerValue `json:"answers"`
}

type Summary struct {
	TotalResponses        int                     `json:"totalResponses"`
	RecentResponses       int                     `json:"recentResponses"`
	AverageCompletionTime float64                 `json:"averageCompletionTime"`
	SentimentDistribution map[model.Sentiment]int `json:"sentimentDistribution"`
	StatusDistribution    map[model.Status]int    `json:"statusDistribution"`
	PriorityDistribution  map[model.Priority]int  `json:"priorityDistribution"`
	DailyTrend            map[string]int          `json:"dailyTrend"`
	QuestionAnalytics     []QuestionRollup        `json:"questionAnalytics,omitempty"`
}

// Aggregate folds responses into a Summary. When questions is non-nil a rollup is
// produced for each of them, in the given order. The fold has no side effects and
// depends only on its arguments.
func Aggregate(responses []model.Response, questions []model.Question, now time.Time) Summary {
	s := Summary{
		TotalResponses:        len(responses),
		SentimentDistribution: map[model.Sentiment]int{},
		StatusDistribution:    map[model.Status]int{},
		PriorityDistribution:  map[model.Priority]int{},
		DailyTrend:            map[string]int{},
	}

	recentSince := now.Add(-RecentWindow)
	var totalDuration float64
	for _, r := range responses {
		if r.CreatedAt.After(recentSince) {
			s.RecentResponses++
		}
		totalDuration += r.SubmissionTime.Duration
		s.SentimentDistribution[r.Sentiment]++
		s.StatusDistribution[r.Status]++
		s.PriorityDistribution[r.Priority]++
		s.DailyTrend[r.CreatedAt.UTC().Format(DayLayout)]++
	}
	if len(responses) > 0 {
		s.AverageCompletionTime = totalDuration / float64(len(responses))
	}

	if questions != nil {
		s.QuestionAnalytics = make([]QuestionRollup, len(questions))
		for i, q := range questions {
			s.QuestionAnalytics[i] = rollup(q, responses)
		}
	}
	return s
}

func rollup(q model.Question, responses []model.Response) QuestionRollup {
	ru := QuestionRollup{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		QuestionType: q.Type,
		Answers:      []model.AnswerValue{},
	}
	for _, r := range responses {
		for _, a := range r.Answers {
			if a.QuestionID != q.ID {
				continue
			}
			ru.ResponseCount++
			if a.Value.Kind() != model.KindNone {
				ru.Answers = append(ru.Answers, a.Value)
			}
			break
		}
	}
	return ru
}
