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

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewProgressController(db *gorm.DB, cfg *config.Config) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg}
}

type WatchTimeInput struct {
	// PositionSeconds is the cumulative playback position (high-water mark),
	// DeltaSeconds the increment watched since the last report.
	PositionSeconds int `json:"position_seconds" validate:"gte=0"`
	DeltaSeconds    int `json:"delta_seconds" validate:"gte=0"`
}

// RecordWatchTime godoc
// @Summary Report lesson watch time
// @Description Applies a cumulative watch-time report and derives lesson completion
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/watch [post]
func (pc *ProgressController) RecordWatchTime(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input WatchTimeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	lesson, enrollment, errResp := pc.loadLessonForUser(c, userID, uint(lessonID))
	if errResp != nil {
		return errResp
	}

	progress, err := pc.getOrCreateProgress(userID, lesson)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	wasCompleted := progress.Status == models.ProgressCompleted
	if err := progress.RecordWatchTime(lesson, input.PositionSeconds, input.DeltaSeconds, time.Now()); err != nil {
		if errors.Is(err, models.ErrValidation) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalServerError(c, "Could not record watch time")
	}

	if err := pc.DB.Save(progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	if !wasCompleted && progress.Status == models.ProgressCompleted {
		if err := pc.rollUpCompletion(enrollment, lesson, progress); err != nil {
			return utils.InternalServerError(c, "Could not update enrollment")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"progress":   progress,
		"enrollment": enrollment,
	})
}

type QuizAttemptInput struct {
	Answers          []models.SubmittedAnswer `json:"answers" validate:"required,min=1"`
	TimeSpentSeconds int                      `json:"time_spent_seconds" validate:"gte=0"`
}

// SubmitQuizAttempt godoc
// @Summary Submit a quiz attempt
// @Description Grades the submitted answers and appends an attempt record
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/quiz [post]
func (pc *ProgressController) SubmitQuizAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input QuizAttemptInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	lesson, enrollment, errResp := pc.loadLessonForUser(c, userID, uint(lessonID))
	if errResp != nil {
		return errResp
	}

	progress, err := pc.getOrCreateProgress(userID, lesson)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	wasCompleted := progress.Status == models.ProgressCompleted
	attempt, err := progress.RecordQuizAttempt(lesson, input.Answers, input.TimeSpentSeconds, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOperation):
			return utils.BadRequest(c, "Lesson is not a quiz")
		case errors.Is(err, models.ErrValidation):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalServerError(c, "Could not grade attempt")
		}
	}

	if err := pc.DB.Save(progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	if !wasCompleted && progress.Status == models.ProgressCompleted {
		if err := pc.rollUpCompletion(enrollment, lesson, progress); err != nil {
			return utils.InternalServerError(c, "Could not update enrollment")
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"attempt":    attempt,
		"progress":   progress,
		"enrollment": enrollment,
	})
}

// GetLessonProgress возвращает прогресс пользователя по уроку
func (pc *ProgressController) GetLessonProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var progress models.LessonProgress
	if err := pc.DB.
		Preload("QuizAttempts").Preload("Bookmarks").Preload("Notes").
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Progress not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, progress)
}

type BookmarkInput struct {
	PositionSeconds int    `json:"position_seconds" validate:"gte=0"`
	Label           string `json:"label" validate:"max=200"`
}

func (pc *ProgressController) AddBookmark(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input BookmarkInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	lesson, _, errResp := pc.loadLessonForUser(c, userID, uint(lessonID))
	if errResp != nil {
		return errResp
	}

	progress, err := pc.getOrCreateProgress(userID, lesson)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	bookmark, err := progress.AddBookmark(input.PositionSeconds, input.Label, time.Now())
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if err := pc.DB.Save(progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save bookmark")
	}

	return utils.Created(c, bookmark)
}

type NoteInput struct {
	Content string `json:"content" validate:"required"`
}

func (pc *ProgressController) AddNote(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input NoteInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	lesson, _, errResp := pc.loadLessonForUser(c, userID, uint(lessonID))
	if errResp != nil {
		return errResp
	}

	progress, err := pc.getOrCreateProgress(userID, lesson)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	note, err := progress.AddNote(input.Content, time.Now())
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if err := pc.DB.Save(progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not save note")
	}

	return utils.Created(c, note)
}

func (pc *ProgressController) UpdateNote(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}
	noteID, err := strconv.Atoi(c.Params("noteId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid note ID")
	}

	var input NoteInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	var progress models.LessonProgress
	if err := pc.DB.Preload("Notes").
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Progress not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	note, err := progress.UpdateNote(uint(noteID), input.Content, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return utils.NotFound(c, "Note not found")
		}
		return utils.BadRequest(c, err.Error())
	}

	if err := pc.DB.Save(note).Error; err != nil {
		return utils.InternalServerError(c, "Could not save note")
	}

	return utils.Success(c, fiber.StatusOK, note)
}

// loadLessonForUser fetches the lesson (with its question bank) and the
// caller's active enrollment in the owning course.
func (pc *ProgressController) loadLessonForUser(c *fiber.Ctx, userID, lessonID uint) (*models.Lesson, *models.CourseEnrollment, error) {
	var lesson models.Lesson
	if err := pc.DB.Preload("Questions").First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFound(c, "Lesson not found")
		}
		return nil, nil, utils.InternalServerError(c, "Could not query database")
	}

	var enrollment models.CourseEnrollment
	if err := pc.DB.Preload("CompletedLessons").
		Where("user_id = ? AND course_id = ?", userID, lesson.CourseID).
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.Forbidden(c, "Not enrolled in this course")
		}
		return nil, nil, utils.InternalServerError(c, "Could not query database")
	}
	if enrollment.Status == models.EnrollmentDropped || enrollment.Status == models.EnrollmentSuspended {
		return nil, nil, utils.Forbidden(c, "Enrollment is closed")
	}

	return &lesson, &enrollment, nil
}

// getOrCreateProgress creates the lesson progress record lazily on first
// access. A concurrent first access loses the insert race on the
// (user_id, lesson_id) unique index and falls back to fetching the winner.
func (pc *ProgressController) getOrCreateProgress(userID uint, lesson *models.Lesson) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	err := pc.DB.Preload("QuizAttempts").Preload("Bookmarks").Preload("Notes").
		Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = models.LessonProgress{
		UserID:   userID,
		LessonID: lesson.ID,
		CourseID: lesson.CourseID,
		Status:   models.ProgressNotStarted,
	}
	if err := pc.DB.Create(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the first-access race; the row exists now.
			var existing models.LessonProgress
			if err := pc.DB.Preload("QuizAttempts").Preload("Bookmarks").Preload("Notes").
				Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &progress, nil
}

// rollUpCompletion records the lesson completion on the enrollment and
// recomputes the course completion percentage.
func (pc *ProgressController) rollUpCompletion(enrollment *models.CourseEnrollment, lesson *models.Lesson, progress *models.LessonProgress) error {
	var lessons []models.Lesson
	if err := pc.DB.Where("course_id = ?", lesson.CourseID).
		Order("sequence_order").Find(&lessons).Error; err != nil {
		return err
	}
	published := models.PublishedLessons(lessons)

	now := time.Now()
	enrollment.MarkLessonCompleted(lesson.ID, progress.TotalWatchTimeSeconds, progress.HighestScore, published, now)
	enrollment.RecomputeCompletion(len(published), now)

	return pc.DB.Save(enrollment).Error
}
