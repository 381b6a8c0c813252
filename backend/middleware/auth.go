package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"studyhub/backend/config"
	"studyhub/backend/models"
	"studyhub/backend/utils"
)

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals("userId", userID)
		return c.Next()
	}
}

func AdminMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !user.IsAdmin() {
			return utils.Forbidden(c, "Admin access required")
		}

		return c.Next()
	}
}

func InstructorMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if !user.IsInstructor() {
			return utils.Forbidden(c, "Instructor access required")
		}

		return c.Next()
	}
}
