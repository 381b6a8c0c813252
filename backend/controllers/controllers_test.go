package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
	"studyhub/backend/routes"
	"studyhub/backend/utils"
)

var (
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
)

func TestMain(m *testing.M) {
	cfg = &config.Config{JWTSecret: "test-secret"}

	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic(err)
	}
	if err := utils.Migrate(db); err != nil {
		panic(err)
	}

	app = fiber.New()
	routes.SetupRoutes(app, db, cfg)

	os.Exit(m.Run())
}

func createUser(t *testing.T, username, role string) (models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hashed),
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateJWTToken(user.ID, cfg)
	require.NoError(t, err)
	return user, token
}

// seedCourse creates a published, certificate-enabled course with one video
// lesson (100s) and one quiz lesson with questions worth 1, 2 and 3 points.
func seedCourse(t *testing.T, authorID uint) (models.Course, models.Lesson, models.Lesson) {
	t.Helper()

	course := models.Course{
		Title:              "Test Course",
		AuthorID:           authorID,
		Published:          true,
		CertificateEnabled: true,
	}
	require.NoError(t, db.Create(&course).Error)

	video := models.Lesson{
		CourseID:        course.ID,
		Title:           "Video Lesson",
		Type:            models.LessonTypeVideo,
		Published:       true,
		SequenceOrder:   1,
		DurationSeconds: 100,
	}
	require.NoError(t, db.Create(&video).Error)

	quiz := models.Lesson{
		CourseID:      course.ID,
		Title:         "Quiz Lesson",
		Type:          models.LessonTypeQuiz,
		Published:     true,
		SequenceOrder: 2,
	}
	require.NoError(t, db.Create(&quiz).Error)

	questions := []models.QuizQuestion{
		{LessonID: quiz.ID, Question: "Q1", Points: 1, CorrectAnswer: models.EncodeAnswer(models.SingleAnswer("a")), SequenceOrder: 1},
		{LessonID: quiz.ID, Question: "Q2", Points: 2, CorrectAnswer: models.EncodeAnswer(models.MultipleAnswer("b", "c")), SequenceOrder: 2},
		{LessonID: quiz.ID, Question: "Q3", Points: 3, CorrectAnswer: models.EncodeAnswer(models.SingleAnswer("d")), SequenceOrder: 3},
	}
	require.NoError(t, db.Create(&questions).Error)
	quiz.Questions = questions

	return course, video, quiz
}

func doRequest(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func dataField(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func TestEnrollAndWatchFlow(t *testing.T) {
	author, _ := createUser(t, "watch_author", "instructor")
	_, token := createUser(t, "watch_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	// Enroll, then enroll again: same record, no duplicate.
	resp := doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	enrollmentID := dataField(t, resp)["ID"]

	resp = doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, enrollmentID, dataField(t, resp)["ID"])

	// Halfway through the video: in progress, 50%.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 50, "delta_seconds": 50})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := dataField(t, resp)
	progress := data["progress"].(map[string]interface{})
	assert.Equal(t, "in_progress", progress["status"])
	assert.Equal(t, float64(50), progress["completion_percentage"])

	// Crossing 80% completes the lesson and rolls up: 1 of 2 lessons = 50%.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 85, "delta_seconds": 35})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = dataField(t, resp)
	progress = data["progress"].(map[string]interface{})
	assert.Equal(t, "completed", progress["status"])
	enrollment := data["enrollment"].(map[string]interface{})
	assert.Equal(t, float64(50), enrollment["completion_percentage"])
	assert.Equal(t, "active", enrollment["status"])
}

func TestQuizFlowAndCertificate(t *testing.T) {
	author, _ := createUser(t, "quiz_author", "instructor")
	_, token := createUser(t, "quiz_student", "user")
	course, video, quiz := seedCourse(t, author.ID)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	q := quiz.Questions

	// Failing attempt: 4 of 6 points = 67%.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/quiz", quiz.ID), token, fiber.Map{
		"time_spent_seconds": 120,
		"answers": []fiber.Map{
			{"question_id": q[0].ID, "answer": fiber.Map{"kind": "single", "values": []string{"a"}}},
			{"question_id": q[2].ID, "answer": fiber.Map{"kind": "single", "values": []string{"d"}}},
		},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := dataField(t, resp)
	attempt := data["attempt"].(map[string]interface{})
	assert.Equal(t, float64(67), attempt["percentage"])
	assert.Equal(t, false, attempt["passed"])
	progress := data["progress"].(map[string]interface{})
	assert.Equal(t, "in_progress", progress["status"])

	// Certificate is not available yet.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/certificate", course.ID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Passing attempt: 5 of 6 points = 83%, multi-value answer reversed.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/quiz", quiz.ID), token, fiber.Map{
		"time_spent_seconds": 90,
		"answers": []fiber.Map{
			{"question_id": q[1].ID, "answer": fiber.Map{"kind": "multiple", "values": []string{"c", "b"}}},
			{"question_id": q[2].ID, "answer": fiber.Map{"kind": "single", "values": []string{"d"}}},
		},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = dataField(t, resp)
	progress = data["progress"].(map[string]interface{})
	assert.Equal(t, "completed", progress["status"])
	assert.Equal(t, float64(5), progress["highest_score"])
	assert.Equal(t, float64(2), progress["best_attempt_number"])

	// Finish the video lesson too: course completes.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 100, "delta_seconds": 100})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	enrollment := dataField(t, resp)["enrollment"].(map[string]interface{})
	assert.Equal(t, float64(100), enrollment["completion_percentage"])
	assert.Equal(t, "completed", enrollment["status"])

	// First certificate request issues; the second reports already issued.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/certificate", course.ID), token, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	certificateID := dataField(t, resp)["certificate_id"]
	assert.NotEmpty(t, certificateID)

	resp = doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/certificate", course.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = dataField(t, resp)
	assert.Equal(t, certificateID, data["certificate_id"])
	assert.Equal(t, true, data["already_issued"])
}

func TestQuizAttemptOnVideoLessonRejected(t *testing.T) {
	author, _ := createUser(t, "mismatch_author", "instructor")
	_, token := createUser(t, "mismatch_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/quiz", video.ID), token, fiber.Map{
		"time_spent_seconds": 10,
		"answers": []fiber.Map{
			{"question_id": 1, "answer": fiber.Map{"kind": "single", "values": []string{"a"}}},
		},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWatchRequiresEnrollment(t *testing.T) {
	author, _ := createUser(t, "unenrolled_author", "instructor")
	_, token := createUser(t, "unenrolled_student", "user")
	_, video, _ := seedCourse(t, author.ID)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 10, "delta_seconds": 10})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDroppedEnrollmentBlocksProgress(t *testing.T) {
	author, _ := createUser(t, "dropped_author", "instructor")
	_, token := createUser(t, "dropped_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/drop", course.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "dropped", dataField(t, resp)["status"])

	// Dropping twice is rejected.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/drop", course.ID), token, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 10, "delta_seconds": 10})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestNotesFlow(t *testing.T) {
	author, _ := createUser(t, "notes_author", "instructor")
	_, token := createUser(t, "notes_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/notes", video.ID), token,
		fiber.Map{"content": "check the diagram at 2:10"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	noteID := dataField(t, resp)["ID"]
	require.NotNil(t, noteID)

	resp = doRequest(t, "PUT",
		fmt.Sprintf("/api/lessons/%d/notes/%d", video.ID, int(noteID.(float64))), token,
		fiber.Map{"content": "diagram is at 3:05"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "diagram is at 3:05", dataField(t, resp)["content"])

	resp = doRequest(t, "PUT",
		fmt.Sprintf("/api/lessons/%d/notes/99999", video.ID), token,
		fiber.Map{"content": "missing"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Bookmarks live next to notes.
	resp = doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/bookmarks", video.ID), token,
		fiber.Map{"position_seconds": 42, "label": "key moment"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(42), dataField(t, resp)["position_seconds"])
}

func TestCourseProgressSummary(t *testing.T) {
	author, _ := createUser(t, "summary_author", "instructor")
	_, token := createUser(t, "summary_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)

	// Summary before any activity is zero-valued, not an error.
	resp := doRequest(t, "GET", fmt.Sprintf("/api/courses/%d/summary", course.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := dataField(t, resp)
	assert.Equal(t, float64(2), data["total_lessons"])
	assert.Equal(t, float64(0), data["completed_lessons"])

	doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": 90, "delta_seconds": 90})

	resp = doRequest(t, "GET", fmt.Sprintf("/api/courses/%d/summary", course.ID), token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = dataField(t, resp)
	assert.Equal(t, float64(1), data["completed_lessons"])
	assert.Equal(t, float64(50), data["completion_percentage"])

	// Daily activity picks up today's watch time.
	resp = doRequest(t, "GET", "/api/activity/daily", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	days := dataField(t, resp)["days"].([]interface{})
	require.NotEmpty(t, days)
}

func TestRequestsRequireToken(t *testing.T) {
	resp := doRequest(t, "GET", "/api/enrollments", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWatchTimeValidation(t *testing.T) {
	author, _ := createUser(t, "valid_author", "instructor")
	_, token := createUser(t, "valid_student", "user")
	course, video, _ := seedCourse(t, author.ID)

	doRequest(t, "POST", fmt.Sprintf("/api/courses/%d/enroll", course.ID), token, nil)

	resp := doRequest(t, "POST", fmt.Sprintf("/api/lessons/%d/watch", video.ID), token,
		fiber.Map{"position_seconds": -5, "delta_seconds": 0})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}
