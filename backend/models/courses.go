package models

import "gorm.io/gorm"

const (
	LessonTypeVideo = "video"
	LessonTypeQuiz  = "quiz"
	LessonTypeText  = "text"
)

const (
	DefaultRequiredWatchPercent = 80
	DefaultPassingScorePercent  = 70
)

type Course struct {
	gorm.Model
	Title              string   `json:"title"`
	ShortDesc          string   `json:"short_desc"`
	Description        string   `json:"description"`
	Difficulty         string   `json:"difficulty"` // beginner, intermediate, advanced
	Topic              string   `json:"topic"`
	AuthorID           uint     `json:"author_id"`
	LogoURL            string   `json:"logo_url"`
	CertificateEnabled bool     `json:"certificate_enabled"`
	Published          bool     `json:"published"`
	Lessons            []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	gorm.Model
	CourseID      uint   `gorm:"index" json:"course_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Content       string `json:"content"`
	Type          string `gorm:"default:text" json:"type"` // video, quiz, text
	SequenceOrder int    `json:"sequence_order"`
	Published     bool   `gorm:"default:true" json:"published"`

	// Video lessons only.
	DurationSeconds          int `json:"duration_seconds,omitempty"`
	RequiredWatchTimePercent int `json:"required_watch_time_percent,omitempty"`

	// Quiz lessons only.
	PassingScorePercent int            `json:"passing_score_percent,omitempty"`
	Questions           []QuizQuestion `json:"questions,omitempty"`
}

type QuizQuestion struct {
	gorm.Model
	LessonID      uint   `gorm:"index" json:"lesson_id"`
	Question      string `json:"question"`
	Options       string `json:"options"` // JSON array of options
	Points        int    `json:"points"`  // unset (0) counts as 1
	CorrectAnswer string `json:"-"`       // JSON-encoded AnswerValue
	SequenceOrder int    `json:"sequence_order"`
}

// RequiredWatchPercent returns the completion threshold for a video lesson.
func (l *Lesson) RequiredWatchPercent() int {
	if l.RequiredWatchTimePercent <= 0 {
		return DefaultRequiredWatchPercent
	}
	return l.RequiredWatchTimePercent
}

// PassingPercent returns the pass threshold for a quiz lesson.
func (l *Lesson) PassingPercent() int {
	if l.PassingScorePercent <= 0 {
		return DefaultPassingScorePercent
	}
	return l.PassingScorePercent
}

// PointValue returns the question's point value, defaulting unset to 1.
func (q *QuizQuestion) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// PublishedLessons filters a course's lessons down to the published ones.
// The slice must already be loaded in sequence order.
func PublishedLessons(lessons []Lesson) []Lesson {
	published := make([]Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.Published {
			published = append(published, l)
		}
	}
	return published
}
