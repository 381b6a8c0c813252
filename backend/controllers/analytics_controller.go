package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
	"studyhub/backend/utils"
)

type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

// GetCourseProgressSummary возвращает сводку прогресса пользователя по курсу
func (ac *AnalyticsController) GetCourseProgressSummary(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var totalLessons int64
	ac.DB.Model(&models.Lesson{}).
		Where("course_id = ? AND published = ?", courseID, true).
		Count(&totalLessons)

	var records []models.LessonProgress
	if err := ac.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&records).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch progress")
	}

	summary := models.SummarizeCourseProgress(uint(courseID), int(totalLessons), records)
	return utils.Success(c, fiber.StatusOK, summary)
}

// GetDailyActivity возвращает активность пользователя по дням за период
func (ac *AnalyticsController) GetDailyActivity(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	// Парсим даты или устанавливаем значения по умолчанию
	var start, end time.Time
	if startDate := c.Query("start_date"); startDate == "" {
		start = time.Now().AddDate(0, -1, 0) // Последний месяц по умолчанию
	} else {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return utils.BadRequest(c, "Invalid start_date format. Use YYYY-MM-DD")
		}
	}
	if endDate := c.Query("end_date"); endDate == "" {
		end = time.Now()
	} else {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return utils.BadRequest(c, "Invalid end_date format. Use YYYY-MM-DD")
		}
		end = end.Add(24*time.Hour - time.Second) // включительно до конца дня
	}

	var records []models.LessonProgress
	if err := ac.DB.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch progress")
	}

	days := models.BucketDailyActivity(records, start, end)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"days": days,
		"period": fiber.Map{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	})
}

// GetCourseAnalytics возвращает статистику по курсу (только автор)
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to view this analytics")
	}

	var stats struct {
		TotalEnrollments int64   `json:"total_enrollments"`
		Active           int64   `json:"active"`
		Completed        int64   `json:"completed"`
		CertificatesSent int64   `json:"certificates_issued"`
		AvgCompletion    float64 `json:"avg_completion"`
	}

	ac.DB.Model(&models.CourseEnrollment{}).
		Where("course_id = ?", courseID).
		Count(&stats.TotalEnrollments)
	ac.DB.Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentActive).
		Count(&stats.Active)
	ac.DB.Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentCompleted).
		Count(&stats.Completed)
	ac.DB.Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND certificate_issued = ?", courseID, true).
		Count(&stats.CertificatesSent)
	ac.DB.Model(&models.CourseEnrollment{}).
		Select("COALESCE(AVG(completion_percentage), 0)").
		Where("course_id = ?", courseID).
		Scan(&stats.AvgCompletion)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course_id":    courseID,
		"course_title": course.Title,
		"stats":        stats,
	})
}
