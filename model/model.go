package model

import "time"

type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
	QuestionRating   QuestionType = "rating"
	QuestionEmail    QuestionType = "email"
	QuestionNumber   QuestionType = "number"
)

var QuestionTypes = []QuestionType{
	QuestionText, QuestionTextarea, QuestionRadio, QuestionCheckbox,
	QuestionRating, QuestionEmail, QuestionNumber,
}

func (t QuestionType) Valid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// HasOptions reports whether answers pick from the question's option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionRadio || t == QuestionCheckbox
}

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRef is the public projection of a user embedded in other records.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"questionText"`
	Type     QuestionType `json:"questionType"`
	Options  []string     `json:"options"`
	Required bool         `json:"required"`
	Order    int          `json:"order"`
}

type FormSettings struct {
	EnableNotifications bool `json:"enableNotifications"`
	RequireCaptcha      bool `json:"requireCaptcha"`
	AllowFileUpload     bool `json:"allowFileUpload"`
}

func DefaultFormSettings() FormSettings {
	return FormSettings{EnableNotifications: true}
}

type FormAnalytics struct {
	TotalResponses        int        `json:"totalResponses"`
	AverageCompletionTime float64    `json:"averageCompletionTime"`
	LastResponseAt        *time.Time `json:"lastResponseAt"`
}

type Form struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	CreatedBy      string        `json:"createdBy"`
	Questions      []Question    `json:"questions"`
	IsActive       bool          `json:"isActive"`
	IsPublic       bool          `json:"isPublic"`
	AllowAnonymous bool          `json:"allowAnonymous"`
	MaxResponses   *int          `json:"maxResponses"`
	ExpiresAt      *time.Time    `json:"expiresAt"`
	Version        int           `json:"version"`
	Settings       FormSettings  `json:"settings"`
	Analytics      FormAnalytics `json:"analytics"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Question returns the question with the given id, if the form has one.
func (f *Form) Question(id string) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Answer struct {
	QuestionID   string       `json:"questionId"`
	QuestionText string       `json:"questionText"`
	QuestionType QuestionType `json:"questionType"`
	Value        AnswerValue  `json:"answer"`
}

// Metadata is free-form client environment information; every field is optional.
type Metadata struct {
	IPAddress        string `json:"ipAddress,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	DeviceType       string `json:"deviceType,omitempty"`
	Browser          string `json:"browser,omitempty"`
	OS               string `json:"os,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	TimeZone         string `json:"timeZone,omitempty"`
	Language         string `json:"language,omitempty"`
}

type SubmissionTime struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	// Duration in seconds.
	Duration float64 `json:"duration"`
}

type Response struct {
	ID              string         `json:"id"`
	FormID          string         `json:"formId"`
	SubmittedBy     *UserRef       `json:"submittedBy"`
	Answers         []Answer       `json:"answers"`
	Metadata        Metadata       `json:"metadata"`
	SubmissionTime  SubmissionTime `json:"submissionTime"`
	Status          Status         `json:"status"`
	ModerationNotes string         `json:"moderationNotes,omitempty"`
	ModeratedBy     *UserRef       `json:"moderatedBy,omitempty"`
	ModeratedAt     *time.Time     `json:"moderatedAt,omitempty"`
	IsAnonymous     bool           `json:"isAnonymous"`
	Tags            []string       `json:"tags"`
	Sentiment       Sentiment      `json:"sentiment"`
	Priority        Priority       `json:"priority"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type NotificationType string

const (
	NotificationFeedbackSubmitted NotificationType = "feedback_submitted"
	NotificationFormCreated       NotificationType = "form_created"
	NotificationResponseReviewed  NotificationType = "response_reviewed"
	NotificationSystemUpdate      NotificationType = "system_update"
	NotificationReminder          NotificationType = "reminder"
)

type NotificationData struct {
	FormID     string `json:"formId,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
	ActionURL  string `json:"actionUrl,omitempty"`
}

type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      NotificationData `json:"data"`
	IsRead    bool             `json:"isRead"`
	Priority  Priority         `json:"priority"`
	ExpiresAt *time.Time       `json:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Pagination mirrors the paging block returned by every list endpoint.
// Total is the number of pages; Count the number of matching records.
type Pagination struct {
	Current int
	Total   int
	Count   int
}

func NewPagination(page, limit, count int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (count + limit - 1) / limit
	}
	return Pagination{Current: page, Total: pages, Count: count}
}

// Render names the record count after the listed collection, e.g. "totalForms".
func (p Pagination) Render(countKey string) map[string]int {
	return map[string]int{
		"current": p.Current,
		"total":   p.Total,
		countKey:  p.Count,
	}
}
