package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentSuspended EnrollmentStatus = "suspended"
)

func (s EnrollmentStatus) String() string { return string(s) }

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentDropped, EnrollmentSuspended:
		return true
	default:
		return false
	}
}

// CourseEnrollment is the per (user, course) aggregate. Created once at
// enrollment time and never hard-deleted; closure is modeled by status.
type CourseEnrollment struct {
	gorm.Model
	UserID   uint `gorm:"uniqueIndex:idx_user_course" json:"user_id"`
	CourseID uint `gorm:"uniqueIndex:idx_user_course" json:"course_id"`

	Status               EnrollmentStatus `gorm:"default:active" json:"status"`
	CompletionPercentage int              `json:"completion_percentage"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	CurrentLessonID      *uint            `json:"current_lesson_id,omitempty"`

	CertificateIssued bool   `json:"certificate_issued"`
	CertificateID     string `json:"certificate_id,omitempty"`

	CompletedLessons []CompletedLesson `gorm:"foreignKey:EnrollmentID" json:"completed_lessons,omitempty"`
}

type CompletedLesson struct {
	gorm.Model
	EnrollmentID     uint      `gorm:"index" json:"enrollment_id"`
	LessonID         uint      `json:"lesson_id"`
	CompletedAt      time.Time `json:"completed_at"`
	WatchTimeSeconds int       `json:"watch_time_seconds"`
	Score            int       `json:"score"`
}

// HasCompletedLesson reports whether the lesson is already recorded.
// CompletedLessons must be loaded.
func (e *CourseEnrollment) HasCompletedLesson(lessonID uint) bool {
	for _, cl := range e.CompletedLessons {
		if cl.LessonID == lessonID {
			return true
		}
	}
	return false
}

// MarkLessonCompleted records a lesson completion and advances the current
// lesson pointer along the course's published lesson order. Returns false
// without touching any state when the lesson was already recorded, so retried
// or duplicated completion events are no-ops.
func (e *CourseEnrollment) MarkLessonCompleted(lessonID uint, watchTimeSeconds, score int, courseLessons []Lesson, now time.Time) bool {
	if e.HasCompletedLesson(lessonID) {
		return false
	}

	e.CompletedLessons = append(e.CompletedLessons, CompletedLesson{
		EnrollmentID:     e.ID,
		LessonID:         lessonID,
		CompletedAt:      now,
		WatchTimeSeconds: watchTimeSeconds,
		Score:            score,
	})

	e.CurrentLessonID = nil
	for i, l := range courseLessons {
		if l.ID == lessonID && i+1 < len(courseLessons) {
			next := courseLessons[i+1].ID
			e.CurrentLessonID = &next
			break
		}
	}
	return true
}

// RecomputeCompletion rederives the completion percentage from the number of
// published lessons in the course. Crossing 100% while active transitions the
// enrollment to completed exactly once; the transition never reverses.
func (e *CourseEnrollment) RecomputeCompletion(publishedLessonCount int, now time.Time) {
	if publishedLessonCount <= 0 {
		return
	}
	e.CompletionPercentage = roundPercent(len(e.CompletedLessons), publishedLessonCount)

	if e.CompletionPercentage >= 100 && e.Status == EnrollmentActive {
		e.Status = EnrollmentCompleted
		if e.CompletedAt == nil {
			t := now
			e.CompletedAt = &t
		}
	}
}

// IssueCertificate assigns a certificate id when the enrollment is completed,
// certificates are enabled for the course, and none was issued yet. Returns
// true only when a certificate was newly issued; callers tell "already
// issued" from "not eligible" by inspecting CertificateIssued.
func (e *CourseEnrollment) IssueCertificate(courseCertificateEnabled bool) bool {
	if e.Status != EnrollmentCompleted || e.CertificateIssued || !courseCertificateEnabled {
		return false
	}
	e.CertificateID = uuid.NewString()
	e.CertificateIssued = true
	return true
}

// Drop closes an active enrollment by explicit user action.
func (e *CourseEnrollment) Drop() bool {
	if e.Status != EnrollmentActive {
		return false
	}
	e.Status = EnrollmentDropped
	return true
}

// Suspend closes an active enrollment by explicit admin/instructor action.
func (e *CourseEnrollment) Suspend() bool {
	if e.Status != EnrollmentActive {
		return false
	}
	e.Status = EnrollmentSuspended
	return true
}

// Reactivate reopens a dropped or suspended enrollment. This is an explicit
// administrative action; nothing transitions back to active automatically.
func (e *CourseEnrollment) Reactivate() bool {
	if e.Status != EnrollmentDropped && e.Status != EnrollmentSuspended {
		return false
	}
	e.Status = EnrollmentActive
	return true
}
