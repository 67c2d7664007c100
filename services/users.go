package services

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"speed/config"
	"speed/models"
)

const bcryptCost = 10

// UserService owns registration, login and account administration.
type UserService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Tokens *TokenService
}

// NewUserService creates a new instance of the UserService.
func NewUserService(db *gorm.DB, logger *zap.Logger, tokens *TokenService) *UserService {
	return &UserService{DB: db, Logger: logger, Tokens: tokens}
}

// RegisterInput carries a registration request. A blank Role defaults to
// Submitter.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Role      models.Role
	FirstName string
	LastName  string
}

// LoginResult is the successful login payload.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	User        PublicUser `json:"user"`
}

// PublicUser is the client-facing view of an account, without the hash.
type PublicUser struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	IsActive  bool        `json:"isActive"`
}

func publicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:        u.PublicID(),
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
	}
}

// Register creates a new account with a bcrypt-hashed password. A taken
// email or username yields ErrUserExists.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("email = ? OR username = ?", in.Email, in.Username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleSubmitter
	}
	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		Role:      role,
		IsActive:  true,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.Logger.Info("User registered", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return &user, nil
}

// Login checks credentials against the stored hash and issues a signed
// token. A missing account, an inactive account and a password mismatch are
// indistinguishable to the caller.
func (s *UserService) Login(email, password string) (*LoginResult, error) {
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(&user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, User: publicUser(&user)}, nil
}

// FindAll returns every account in client-facing form.
func (s *UserService) FindAll() ([]PublicUser, error) {
	var users []models.User
	if err := s.DB.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, publicUser(&users[i]))
	}
	return out, nil
}

// UpdateRole assigns a validated role to the given account.
func (s *UserService) UpdateRole(id string, role models.Role) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.Role = role
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	s.Logger.Info("User role updated", zap.String("email", user.Email), zap.String("role", string(role)))
	return &user, nil
}

// UpdatePassword re-hashes and stores a new password for the given account.
func (s *UserService) UpdatePassword(id string, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	result := s.DB.Model(&models.User{}).Where("id = ?", id).Update("password", string(hash))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ModeratorEmails returns the addresses of all active moderators, for the
// pending-queue reminder.
func (s *UserService) ModeratorEmails() ([]string, error) {
	var emails []string
	err := s.DB.Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleModerator, true).
		Pluck("email", &emails).Error
	return emails, err
}

// SeedAdmin creates the configured administrator account when no
// administrator exists yet. Skipped when seeding is not configured.
func (s *UserService) SeedAdmin(cfg *config.Config) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}
	var count int64
	s.DB.Model(&models.User{}).Where("role = ?", models.RoleAdministrator).Count(&count)
	if count > 0 {
		return
	}
	_, err := s.Register(RegisterInput{
		Username: cfg.SeedAdminUsername,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
		Role:     models.RoleAdministrator,
	})
	if err != nil {
		s.Logger.Warn("Failed to seed administrator account", zap.Error(err))
	} else {
		s.Logger.Info("Administrator account seeded.", zap.String("email", cfg.SeedAdminEmail))
	}
}
