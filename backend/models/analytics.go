package models

import "time"

// CourseProgressSummary is a read-side rollup of one user's lesson progress
// within a course. Derived, never stored.
type CourseProgressSummary struct {
	CourseID             uint       `json:"course_id"`
	TotalLessons         int        `json:"total_lessons"`
	CompletedLessons     int        `json:"completed_lessons"`
	CompletionPercentage int        `json:"completion_percentage"`
	WatchTimeSeconds     int        `json:"watch_time_seconds"`
	LastAccessedAt       *time.Time `json:"last_accessed_at,omitempty"`
}

// DailyActivity is one day's bucket of watch time and completions.
type DailyActivity struct {
	Date             string `json:"date"` // YYYY-MM-DD
	WatchTimeSeconds int    `json:"watch_time_seconds"`
	LessonsCompleted int    `json:"lessons_completed"`
}

// SummarizeCourseProgress derives a per-course summary from the user's lesson
// progress records. An empty record set yields a zero-valued summary.
func SummarizeCourseProgress(courseID uint, totalLessons int, records []LessonProgress) CourseProgressSummary {
	summary := CourseProgressSummary{
		CourseID:     courseID,
		TotalLessons: totalLessons,
	}
	for _, r := range records {
		if r.Status == ProgressCompleted {
			summary.CompletedLessons++
		}
		summary.WatchTimeSeconds += r.TotalWatchTimeSeconds
		if !r.LastAccessedAt.IsZero() &&
			(summary.LastAccessedAt == nil || r.LastAccessedAt.After(*summary.LastAccessedAt)) {
			t := r.LastAccessedAt
			summary.LastAccessedAt = &t
		}
	}
	if totalLessons > 0 {
		summary.CompletionPercentage = roundPercent(summary.CompletedLessons, totalLessons)
	}
	return summary
}

// BucketDailyActivity groups lesson progress into daily buckets between start
// and end (inclusive). Watch time is attributed to the day the record was
// last touched; completions to the day the lesson completed. Days with no
// activity are omitted; buckets come back in date order.
func BucketDailyActivity(records []LessonProgress, start, end time.Time) []DailyActivity {
	byDay := make(map[string]*DailyActivity)

	within := func(t time.Time) bool {
		return !t.Before(start) && !t.After(end)
	}
	bucket := func(t time.Time) *DailyActivity {
		day := t.Format("2006-01-02")
		b, ok := byDay[day]
		if !ok {
			b = &DailyActivity{Date: day}
			byDay[day] = b
		}
		return b
	}

	for _, r := range records {
		if !r.LastAccessedAt.IsZero() && within(r.LastAccessedAt) {
			bucket(r.LastAccessedAt).WatchTimeSeconds += r.TotalWatchTimeSeconds
		}
		if r.CompletedAt != nil && within(*r.CompletedAt) {
			bucket(*r.CompletedAt).LessonsCompleted++
		}
	}

	days := make([]DailyActivity, 0, len(byDay))
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		if b, ok := byDay[cursor.Format("2006-01-02")]; ok {
			days = append(days, *b)
		}
	}
	return days
}
