package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"places_backend/pkg/apperr"
	"places_backend/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Surname  string `json:"surname" binding:"required"`
	Gender   string `json:"gender" binding:"omitempty,oneof=man woman"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// Session is what register and login hand back to the client.
type Session struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type Service struct {
	db     *gorm.DB
	tokens *Tokens
	log    logrus.FieldLogger
	cost   int
}

func NewService(db *gorm.DB, tokens *Tokens, log logrus.FieldLogger) *Service {
	return &Service{db: db, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, apperr.Validation("validation error",
			apperr.FieldError{Field: "password", Error: "password must be at least 6 characters"})
	}
	email := NormalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	db := s.db.WithContext(ctx)

	taken, err := exists(db.Where("email = ?", email))
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Email already exists.")
	}
	taken, err = exists(db.Where("username = ?", username))
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Username already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		PasswordHash: string(hash),
	}
	user.FullName = strings.TrimSpace(user.Name + " " + user.Surname)
	switch req.Gender {
	case "man":
		g := models.GenderMan
		user.Gender = &g
	case "woman":
		g := models.GenderWoman
		user.Gender = &g
	}

	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Email or username already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", NormalizeEmail(req.Identifier), req.Identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Account not found for provided email or username.")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Incorrect password.")
	}
	return s.session(&user)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if len(req.NewPassword) < MinPasswordLength {
		return apperr.Validation("validation error",
			apperr.FieldError{Field: "newPassword", Error: "newPassword must be at least 6 characters"})
	}
	if !models.ValidID(userID) {
		return apperr.Unauthorized("User not found.")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthorized("User not found.")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperr.Unauthorized("Current password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, AccessToken: token}, nil
}

func exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return count > 0, nil
}
