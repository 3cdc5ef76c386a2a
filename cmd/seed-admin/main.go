package main

import (
	"log"
	"os"
	"strings"

	"github.com/dropfall/backend/internal/admin"
	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/database"
)

func main() {
	// Initialize configuration (also loads .env when present)
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Seed admin account
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
		log.Printf("Using default admin username: %s", username)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	displayName := os.Getenv("ADMIN_DISPLAY_NAME")
	if displayName == "" {
		displayName = "Admin"
	}

	roles := []string{"superadmin"}
	if r := os.Getenv("ADMIN_ROLES"); r != "" {
		roles = strings.Split(r, ",")
	}

	if err := admin.CreateAdminAccount(db, username, displayName, adminToken, roles); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("Admin account created/updated successfully")
	log.Printf("  Username: %s", username)
	log.Printf("  Display Name: %s", displayName)
	log.Printf("  Roles: %v", roles)
	log.Println("Log in with POST /api/v1/admin/login {\"username\", \"token\"}")
}
