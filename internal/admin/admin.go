package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/dropfall/backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound = errors.New("admin account not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// GetAdminAccount retrieves an admin account by username
func GetAdminAccount(db *sqlx.DB, username string) (*models.AdminAccount, error) {
	var admin models.AdminAccount
	err := db.Get(&admin, `SELECT username, display_name, token_hash, roles, created_at, updated_at FROM admin_accounts WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken))
	return err == nil
}

// HashAdminToken hashes a plain access token for storage
func HashAdminToken(plainToken string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// CreateAdminAccount creates or replaces an admin account (used for seeding)
func CreateAdminAccount(db *sqlx.DB, username, displayName, plainToken string, roles []string) error {
	hashedToken, err := HashAdminToken(plainToken)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO admin_accounts (username, display_name, token_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			roles = EXCLUDED.roles,
			updated_at = NOW()
	`, username, displayName, hashedToken, pq.Array(roles))

	return err
}

// ValidateAdminCredentials validates a username + access token combination
func ValidateAdminCredentials(db *sqlx.DB, username, token string) (*models.AdminAccount, error) {
	admin, err := GetAdminAccount(db, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[ADMIN] No admin account found for %s", username)
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !VerifyAdminToken(admin.TokenHash, token) {
		log.Printf("[ADMIN] Token verification failed for %s", username)
		return nil, ErrInvalidToken
	}
	return admin, nil
}

// LogAdminAction records an admin action in the audit log
func LogAdminAction(db *sqlx.DB, username, ip, route, action string, details map[string]interface{}, success bool) error {
	if db == nil {
		return nil
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil || details == nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.Exec(`
		INSERT INTO admin_audit (username, ip, route, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, username, ip, route, action, detailsJSON, success)

	if err != nil {
		log.Printf("[ADMIN] Failed to log admin action: %v", err)
	}

	return err
}

// GetAdminAuditLogs retrieves recent audit entries, optionally for one admin
func GetAdminAuditLogs(db *sqlx.DB, username string, limit, offset int) ([]models.AdminAudit, error) {
	logs := []models.AdminAudit{}
	err := db.Select(&logs, `
		SELECT id, username, ip, route, action, details, success, created_at
		FROM admin_audit
		WHERE ($1 = '' OR username = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, username, limit, offset)
	return logs, err
}
