package utils

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
)

// InitDB establishes the PostgreSQL connection and runs migrations.
// TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey, which the controllers recover from by re-fetching.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the schema migrations. Shared with the test setup.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.QuizQuestion{},
		&models.LessonProgress{},
		&models.QuizAttempt{},
		&models.Bookmark{},
		&models.Note{},
		&models.CourseEnrollment{},
		&models.CompletedLesson{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
