package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
	"studyhub/backend/utils"
)

type EnrollmentController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewEnrollmentController(db *gorm.DB, cfg *config.Config) *EnrollmentController {
	return &EnrollmentController{DB: db, Cfg: cfg}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Creates the (user, course) enrollment; re-enrolling returns the existing record
// @Tags enrollments
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (ec *EnrollmentController) Enroll(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := ec.DB.Where("id = ? AND published = ?", courseID, true).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var existing models.CourseEnrollment
	if err := ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err == nil {
		return utils.Success(c, fiber.StatusOK, existing)
	}

	enrollment := models.CourseEnrollment{
		UserID:   userID,
		CourseID: uint(courseID),
		Status:   models.EnrollmentActive,
	}
	if err := ec.DB.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent enroll won the race; return its record.
			if err := ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
				First(&enrollment).Error; err != nil {
				return utils.InternalServerError(c, "Could not query database")
			}
			return utils.Success(c, fiber.StatusOK, enrollment)
		}
		return utils.InternalServerError(c, "Could not enroll in course")
	}

	return utils.Created(c, enrollment)
}

// GetEnrollments возвращает все записи пользователя на курсы
func (ec *EnrollmentController) GetEnrollments(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var enrollments []models.CourseEnrollment
	if err := ec.DB.Preload("CompletedLessons").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch enrollments")
	}

	return utils.Success(c, fiber.StatusOK, enrollments)
}

// Drop закрывает запись по инициативе пользователя
func (ec *EnrollmentController) Drop(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	enrollment, errResp := ec.loadOwnEnrollment(c, userID)
	if errResp != nil {
		return errResp
	}

	if !enrollment.Drop() {
		return utils.Conflict(c, "Enrollment is not active")
	}
	if err := ec.DB.Save(enrollment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update enrollment")
	}

	return utils.Success(c, fiber.StatusOK, enrollment)
}

// Suspend закрывает запись по решению администратора
func (ec *EnrollmentController) Suspend(c *fiber.Ctx) error {
	enrollment, errResp := ec.loadEnrollmentByID(c)
	if errResp != nil {
		return errResp
	}

	if !enrollment.Suspend() {
		return utils.Conflict(c, "Enrollment is not active")
	}
	if err := ec.DB.Save(enrollment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update enrollment")
	}

	return utils.Success(c, fiber.StatusOK, enrollment)
}

// Reactivate снова открывает закрытую запись (только администратор)
func (ec *EnrollmentController) Reactivate(c *fiber.Ctx) error {
	enrollment, errResp := ec.loadEnrollmentByID(c)
	if errResp != nil {
		return errResp
	}

	if !enrollment.Reactivate() {
		return utils.Conflict(c, "Enrollment is not dropped or suspended")
	}
	if err := ec.DB.Save(enrollment).Error; err != nil {
		return utils.InternalServerError(c, "Could not update enrollment")
	}

	return utils.Success(c, fiber.StatusOK, enrollment)
}

// RequestCertificate godoc
// @Summary Request a course certificate
// @Description Issues a certificate for a completed enrollment; repeat calls report the existing one
// @Tags enrollments
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/certificate [post]
func (ec *EnrollmentController) RequestCertificate(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	enrollment, errResp := ec.loadOwnEnrollment(c, userID)
	if errResp != nil {
		return errResp
	}

	var course models.Course
	if err := ec.DB.First(&course, enrollment.CourseID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	if enrollment.IssueCertificate(course.CertificateEnabled) {
		if err := ec.DB.Save(enrollment).Error; err != nil {
			return utils.InternalServerError(c, "Could not save certificate")
		}
		return utils.Created(c, fiber.Map{
			"certificate_id": enrollment.CertificateID,
			"issued_at":      time.Now().Format(time.RFC3339),
		})
	}

	if enrollment.CertificateIssued {
		return utils.Success(c, fiber.StatusOK, fiber.Map{
			"certificate_id": enrollment.CertificateID,
			"already_issued": true,
		})
	}
	return utils.BadRequest(c, "Enrollment is not eligible for a certificate")
}

func (ec *EnrollmentController) loadOwnEnrollment(c *fiber.Ctx, userID uint) (*models.CourseEnrollment, error) {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid course ID")
	}

	var enrollment models.CourseEnrollment
	if err := ec.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Enrollment not found")
		}
		return nil, utils.InternalServerError(c, "Could not query database")
	}
	return &enrollment, nil
}

func (ec *EnrollmentController) loadEnrollmentByID(c *fiber.Ctx) (*models.CourseEnrollment, error) {
	enrollmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid enrollment ID")
	}

	var enrollment models.CourseEnrollment
	if err := ec.DB.First(&enrollment, enrollmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound(c, "Enrollment not found")
		}
		return nil, utils.InternalServerError(c, "Could not query database")
	}
	return &enrollment, nil
}
