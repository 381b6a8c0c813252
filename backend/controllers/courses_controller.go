package controllers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
	"studyhub/backend/utils"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

type CreateCourseInput struct {
	Title              string `json:"title" validate:"required,max=200"`
	ShortDesc          string `json:"short_desc"`
	Description        string `json:"description"`
	Difficulty         string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Topic              string `json:"topic"`
	LogoURL            string `json:"logo_url"`
	CertificateEnabled bool   `json:"certificate_enabled"`
	Published          bool   `json:"published"`
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input CreateCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	course := models.Course{
		Title:              input.Title,
		ShortDesc:          input.ShortDesc,
		Description:        input.Description,
		Difficulty:         input.Difficulty,
		Topic:              input.Topic,
		LogoURL:            input.LogoURL,
		CertificateEnabled: input.CertificateEnabled,
		Published:          input.Published,
		AuthorID:           userID,
	}
	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not create course")
	}

	return utils.Created(c, course)
}

func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var course models.Course
	if err := cc.DB.
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order")
		}).
		Preload("Lessons.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order")
		}).
		First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, course)
}

// SearchCourses возвращает опубликованные курсы по критериям поиска
func (cc *CoursesController) SearchCourses(c *fiber.Ctx) error {
	search := c.Query("search")
	topic := c.Query("topic")
	sort := c.Query("sort", "newest") // newest, title

	query := cc.DB.Model(&models.Course{}).Where("published = ?", true)

	if search != "" {
		query = query.Where("title ILIKE ? OR short_desc ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}

	switch sort {
	case "title":
		query = query.Order("title")
	default:
		query = query.Order("created_at DESC")
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch courses")
	}

	return utils.Success(c, fiber.StatusOK, courses)
}

type LessonInput struct {
	Title                    string `json:"title" validate:"required,max=200"`
	Description              string `json:"description"`
	Content                  string `json:"content"`
	Type                     string `json:"type" validate:"required,oneof=video quiz text"`
	Published                *bool  `json:"published"`
	DurationSeconds          int    `json:"duration_seconds" validate:"gte=0"`
	RequiredWatchTimePercent int    `json:"required_watch_time_percent" validate:"gte=0,max=100"`
	PassingScorePercent      int    `json:"passing_score_percent" validate:"gte=0,max=100"`
}

func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input LessonInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to edit this course")
	}

	// Next sequence position
	var lessonCount int64
	cc.DB.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessonCount)

	published := true
	if input.Published != nil {
		published = *input.Published
	}

	lesson := models.Lesson{
		CourseID:                 uint(courseID),
		Title:                    input.Title,
		Description:              input.Description,
		Content:                  input.Content,
		Type:                     input.Type,
		Published:                published,
		SequenceOrder:            int(lessonCount) + 1,
		DurationSeconds:          input.DurationSeconds,
		RequiredWatchTimePercent: input.RequiredWatchTimePercent,
		PassingScorePercent:      input.PassingScorePercent,
	}
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not create lesson")
	}

	return utils.Created(c, lesson)
}

type QuestionInput struct {
	Question      string             `json:"question" validate:"required"`
	Options       []string           `json:"options"`
	Points        int                `json:"points" validate:"gte=0"`
	CorrectAnswer models.AnswerValue `json:"correct_answer"`
}

func (cc *CoursesController) AddQuestion(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fields := utils.ValidateStruct(input); fields != nil {
		return utils.ValidationError(c, fields)
	}
	if !input.CorrectAnswer.Valid() {
		return utils.ValidationError(c, map[string]string{"correct_answer": "must be a single or multiple answer with values"})
	}

	var lesson models.Lesson
	if err := cc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if lesson.Type != models.LessonTypeQuiz {
		return utils.BadRequest(c, "Lesson is not a quiz")
	}

	var course models.Course
	if err := cc.DB.First(&course, lesson.CourseID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to edit this course")
	}

	var questionCount int64
	cc.DB.Model(&models.QuizQuestion{}).Where("lesson_id = ?", lessonID).Count(&questionCount)

	options, _ := json.Marshal(input.Options)
	question := models.QuizQuestion{
		LessonID:      uint(lessonID),
		Question:      input.Question,
		Options:       string(options),
		Points:        input.Points,
		CorrectAnswer: models.EncodeAnswer(input.CorrectAnswer),
		SequenceOrder: int(questionCount) + 1,
	}
	if err := cc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	return utils.Created(c, question)
}

func (cc *CoursesController) UpdateQuestion(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid question ID")
	}

	var input struct {
		Question      string              `json:"question"`
		Options       []string            `json:"options"`
		Points        int                 `json:"points"`
		CorrectAnswer *models.AnswerValue `json:"correct_answer"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var question models.QuizQuestion
	if err := cc.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var lesson models.Lesson
	if err := cc.DB.First(&lesson, question.LessonID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	var course models.Course
	if err := cc.DB.First(&course, lesson.CourseID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to edit this course")
	}

	if input.Question != "" {
		question.Question = input.Question
	}
	if input.Options != nil {
		options, _ := json.Marshal(input.Options)
		question.Options = string(options)
	}
	if input.Points > 0 {
		question.Points = input.Points
	}
	if input.CorrectAnswer != nil {
		if !input.CorrectAnswer.Valid() {
			return utils.ValidationError(c, map[string]string{"correct_answer": "must be a single or multiple answer with values"})
		}
		question.CorrectAnswer = models.EncodeAnswer(*input.CorrectAnswer)
	}

	if err := cc.DB.Save(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not update question")
	}

	return utils.Success(c, fiber.StatusOK, question)
}

func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var input struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Content         string `json:"content"`
		SequenceOrder   int    `json:"sequence_order"`
		Published       *bool  `json:"published"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if course.AuthorID != userID {
		return utils.Forbidden(c, "You don't have permission to edit this course")
	}

	var lesson models.Lesson
	if err := cc.DB.Where("id = ? AND course_id = ?", lessonID, courseID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Lesson not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != "" {
		lesson.Title = input.Title
	}
	if input.Description != "" {
		lesson.Description = input.Description
	}
	if input.Content != "" {
		lesson.Content = input.Content
	}
	if input.SequenceOrder != 0 {
		lesson.SequenceOrder = input.SequenceOrder
	}
	if input.Published != nil {
		lesson.Published = *input.Published
	}
	if input.DurationSeconds != 0 {
		lesson.DurationSeconds = input.DurationSeconds
	}

	if err := cc.DB.Save(&lesson).Error; err != nil {
		return utils.InternalServerError(c, "Could not update lesson")
	}

	return utils.Success(c, fiber.StatusOK, lesson)
}
