// Command create-admin seeds the initial administrator account. Safe to run
// repeatedly; an existing username is left untouched.
package main

import (
	"errors"
	"log"
	"os"
	"time"

	"project-report-api/config"
	"project-report-api/models"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()

	username := envOr("ADMIN_USERNAME", "admin01")
	password := os.Getenv("ADMIN_PASSWORD")
	email := envOr("ADMIN_EMAIL", "admin@example.com")
	name := envOr("ADMIN_NAME", "Admin User")

	if password == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}

	var existing models.User
	err := config.DB.Where("username = ? AND delete_at IS NULL", username).First(&existing).Error
	if err == nil {
		log.Printf("Admin user %q already exists, nothing to do", username)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatal("Failed to check existing admin:", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	now := time.Now()
	admin := models.User{
		Name:     name,
		Email:    email,
		Username: username,
		Password: string(hashed),
		Role:     models.RoleAdmin,
		CreateAt: &now,
		UpdateAt: &now,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	log.Printf("Admin %q created (user_id=%d)", username, admin.UserID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
