package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

func (s ProgressStatus) String() string { return string(s) }

func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	default:
		return false
	}
}

// LessonProgress tracks one user's state on one lesson. Created lazily on
// first access; the (user_id, lesson_id) pair is unique.
type LessonProgress struct {
	gorm.Model
	UserID   uint `gorm:"uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson" json:"lesson_id"`
	CourseID uint `gorm:"index" json:"course_id"`

	Status ProgressStatus `gorm:"default:not_started" json:"status"`

	// WatchTimeSeconds is the high-water playback position; it only moves
	// forward and alone drives completion percentage. TotalWatchTimeSeconds
	// accumulates every reported increment, including rewatches.
	WatchTimeSeconds      int `json:"watch_time_seconds"`
	TotalWatchTimeSeconds int `json:"total_watch_time_seconds"`

	CompletionPercentage int        `json:"completion_percentage"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	LastAccessedAt       time.Time  `json:"last_accessed_at"`

	HighestScore      int  `json:"highest_score"`
	BestAttemptNumber int  `json:"best_attempt_number"`
	Passed            bool `json:"passed"`

	QuizAttempts []QuizAttempt `json:"quiz_attempts,omitempty"`
	Bookmarks    []Bookmark    `json:"bookmarks,omitempty"`
	Notes        []Note        `json:"notes,omitempty"`
}

type QuizAttempt struct {
	gorm.Model
	LessonProgressID uint      `gorm:"index" json:"lesson_progress_id"`
	AttemptNumber    int       `json:"attempt_number"`
	Answers          string    `json:"answers"` // JSON array of submitted answers
	Score            int       `json:"score"`
	Percentage       int       `json:"percentage"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	Passed           bool      `json:"passed"`
	CompletedAt      time.Time `json:"completed_at"`
}

type Bookmark struct {
	gorm.Model
	LessonProgressID uint   `gorm:"index" json:"lesson_progress_id"`
	PositionSeconds  int    `json:"position_seconds"`
	Label            string `json:"label"`
}

type Note struct {
	gorm.Model
	LessonProgressID uint   `gorm:"index" json:"lesson_progress_id"`
	Content          string `json:"content"`
}

// SubmittedAnswer is one graded unit of a quiz attempt payload.
type SubmittedAnswer struct {
	QuestionID uint        `json:"question_id"`
	Answer     AnswerValue `json:"answer"`
}

// RecordWatchTime applies a client watch-time report. positionSeconds is the
// cumulative high-water playback position; deltaSeconds is the incremental
// watch time since the previous report. Duplicate or out-of-order reports are
// safe: the position only ratchets upward. Completion percentage is derived
// from the position for video lessons only.
func (p *LessonProgress) RecordWatchTime(lesson *Lesson, positionSeconds, deltaSeconds int, now time.Time) error {
	if positionSeconds < 0 || deltaSeconds < 0 {
		return fmt.Errorf("watch time must be non-negative: %w", ErrValidation)
	}

	p.LastAccessedAt = now
	if positionSeconds > p.WatchTimeSeconds {
		p.WatchTimeSeconds = positionSeconds
	}
	p.TotalWatchTimeSeconds += deltaSeconds

	if lesson.Type != LessonTypeVideo || lesson.DurationSeconds <= 0 {
		return nil
	}

	pct := roundPercent(p.WatchTimeSeconds, lesson.DurationSeconds)
	if pct > 100 {
		pct = 100
	}
	p.CompletionPercentage = pct

	if p.Status == ProgressCompleted {
		return nil
	}
	if pct >= lesson.RequiredWatchPercent() {
		p.markCompleted(now)
	} else if pct > 0 && p.Status == ProgressNotStarted {
		p.Status = ProgressInProgress
	}
	return nil
}

// RecordQuizAttempt grades the submitted answers against the lesson's
// question bank and appends a new attempt. Passing an attempt completes the
// lesson permanently; a later failing attempt never reverses it.
func (p *LessonProgress) RecordQuizAttempt(lesson *Lesson, answers []SubmittedAnswer, timeSpentSeconds int, now time.Time) (*QuizAttempt, error) {
	if lesson.Type != LessonTypeQuiz {
		return nil, fmt.Errorf("lesson %d is not a quiz: %w", lesson.ID, ErrInvalidOperation)
	}
	if len(answers) == 0 || timeSpentSeconds < 0 {
		return nil, fmt.Errorf("quiz attempt payload: %w", ErrValidation)
	}

	submitted := make(map[uint]AnswerValue, len(answers))
	for _, a := range answers {
		if !a.Answer.Valid() {
			return nil, fmt.Errorf("answer for question %d: %w", a.QuestionID, ErrValidation)
		}
		submitted[a.QuestionID] = a.Answer
	}

	score := 0
	totalPossible := 0
	for _, q := range lesson.Questions {
		totalPossible += q.PointValue()
		given, ok := submitted[q.ID]
		if !ok {
			continue
		}
		correct, err := DecodeAnswer(q.CorrectAnswer)
		if err != nil {
			return nil, fmt.Errorf("question %d answer key: %w", q.ID, err)
		}
		if correct.Equal(given) {
			score += q.PointValue()
		}
	}
	if totalPossible == 0 {
		return nil, fmt.Errorf("quiz has no questions: %w", ErrValidation)
	}

	percentage := roundPercent(score, totalPossible)
	raw, _ := json.Marshal(answers)

	attempt := QuizAttempt{
		LessonProgressID: p.ID,
		AttemptNumber:    len(p.QuizAttempts) + 1,
		Answers:          string(raw),
		Score:            score,
		Percentage:       percentage,
		TimeSpentSeconds: timeSpentSeconds,
		Passed:           percentage >= lesson.PassingPercent(),
		CompletedAt:      now,
	}
	p.QuizAttempts = append(p.QuizAttempts, attempt)
	p.LastAccessedAt = now

	if attempt.Score > p.HighestScore {
		p.HighestScore = attempt.Score
		p.BestAttemptNumber = attempt.AttemptNumber
	}

	if attempt.Passed {
		p.Passed = true
		p.CompletionPercentage = 100
		p.markCompleted(now)
	} else if p.Status == ProgressNotStarted {
		p.Status = ProgressInProgress
	}

	return &p.QuizAttempts[len(p.QuizAttempts)-1], nil
}

// AddBookmark appends a bookmark; no derived state changes.
func (p *LessonProgress) AddBookmark(positionSeconds int, label string, now time.Time) (*Bookmark, error) {
	if positionSeconds < 0 {
		return nil, fmt.Errorf("bookmark position must be non-negative: %w", ErrValidation)
	}
	p.Bookmarks = append(p.Bookmarks, Bookmark{
		LessonProgressID: p.ID,
		PositionSeconds:  positionSeconds,
		Label:            label,
	})
	p.LastAccessedAt = now
	return &p.Bookmarks[len(p.Bookmarks)-1], nil
}

// AddNote appends a note; no derived state changes.
func (p *LessonProgress) AddNote(content string, now time.Time) (*Note, error) {
	if content == "" {
		return nil, fmt.Errorf("note content required: %w", ErrValidation)
	}
	p.Notes = append(p.Notes, Note{
		LessonProgressID: p.ID,
		Content:          content,
	})
	p.LastAccessedAt = now
	return &p.Notes[len(p.Notes)-1], nil
}

// UpdateNote replaces the content of an existing note. Notes must be loaded.
func (p *LessonProgress) UpdateNote(noteID uint, content string, now time.Time) (*Note, error) {
	if content == "" {
		return nil, fmt.Errorf("note content required: %w", ErrValidation)
	}
	for i := range p.Notes {
		if p.Notes[i].ID == noteID {
			p.Notes[i].Content = content
			p.LastAccessedAt = now
			return &p.Notes[i], nil
		}
	}
	return nil, fmt.Errorf("note %d: %w", noteID, ErrNotFound)
}

// markCompleted transitions to completed, stamping CompletedAt exactly once.
func (p *LessonProgress) markCompleted(now time.Time) {
	p.Status = ProgressCompleted
	if p.CompletedAt == nil {
		t := now
		p.CompletedAt = &t
	}
}

func roundPercent(part, whole int) int {
	return int(math.Round(100 * float64(part) / float64(whole)))
}
