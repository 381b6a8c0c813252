package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/controllers"
	"studyhub/backend/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)
	instructorMiddleware := middleware.InstructorMiddleware(db, cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Courses (catalog)
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.SearchCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)

	// Enrollments
	enrollmentController := controllers.NewEnrollmentController(db, cfg)
	app.Get("/api/enrollments", authMiddleware, enrollmentController.GetEnrollments)
	courses.Post("/:id/enroll", enrollmentController.Enroll)
	courses.Post("/:id/drop", enrollmentController.Drop)
	courses.Post("/:id/certificate", enrollmentController.RequestCertificate)

	// Progress tracking
	progressController := controllers.NewProgressController(db, cfg)
	lessons := app.Group("/api/lessons", authMiddleware)
	lessons.Get("/:id/progress", progressController.GetLessonProgress)
	lessons.Post("/:id/watch", progressController.RecordWatchTime)
	lessons.Post("/:id/quiz", progressController.SubmitQuizAttempt)
	lessons.Post("/:id/bookmarks", progressController.AddBookmark)
	lessons.Post("/:id/notes", progressController.AddNote)
	lessons.Put("/:id/notes/:noteId", progressController.UpdateNote)

	// Analytics
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	courses.Get("/:id/summary", analyticsController.GetCourseProgressSummary)
	app.Get("/api/activity/daily", authMiddleware, analyticsController.GetDailyActivity)
	courses.Get("/:id/analytics", analyticsController.GetCourseAnalytics)

	// Admin routes for the catalog
	adminCourses := app.Group("/api/admin/courses", authMiddleware, instructorMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Post("/:id/lessons", coursesController.AddLesson)
	adminCourses.Put("/:id/lessons/:lessonId", coursesController.UpdateLesson)
	adminCourses.Post("/:id/lessons/:lessonId/questions", coursesController.AddQuestion)
	adminCourses.Put("/:id/lessons/:lessonId/questions/:questionId", coursesController.UpdateQuestion)

	// Admin routes for enrollments
	adminEnrollments := app.Group("/api/admin/enrollments", authMiddleware, adminMiddleware)
	adminEnrollments.Post("/:id/suspend", enrollmentController.Suspend)
	adminEnrollments.Post("/:id/reactivate", enrollmentController.Reactivate)
}
