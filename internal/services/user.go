package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksred/fullstack-boilerplate/internal/models"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
)

const userResource = "User"

// UserService handles user-related business logic
type UserService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(db *gorm.DB, logger zerolog.Logger) *UserService {
	return &UserService{
		db:     db,
		logger: logger,
	}
}

// List returns every user, newest first
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		s.log(ctx).Error().Err(err).Msg("failed to list users")
		return nil, utils.WrapDatabaseError("list users", err)
	}
	return users, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.WrapNotFoundError(userResource, id)
		}
		s.log(ctx).Error().Err(err).Str("user_id", id).Msg("failed to get user")
		return nil, utils.WrapDatabaseError("get user", err)
	}
	return &user, nil
}

// Create stores a new user with a generated ID
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user := models.User{
		ID:       uuid.NewString(),
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
	}

	if user.Username == "" {
		return nil, utils.RequiredFieldError("username")
	}
	if user.Email == "" {
		return nil, utils.RequiredFieldError("email")
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, s.writeError(ctx, "create user", user.Email, err)
	}

	s.log(ctx).Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("User created")

	return &user, nil
}

// Update applies the non-nil fields of req to an existing user
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if req.IsEmpty() {
		return nil, utils.WrapValidationError("", "At least one field must be provided")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
		if user.Username == "" {
			return nil, utils.RequiredFieldError("username")
		}
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
		if user.Email == "" {
			return nil, utils.RequiredFieldError("email")
		}
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, s.writeError(ctx, "update user", user.Email, err)
	}

	s.log(ctx).Info().Str("user_id", user.ID).Msg("User updated")

	return user, nil
}

// Delete removes a user by ID
func (s *UserService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		s.log(ctx).Error().Err(result.Error).Str("user_id", id).Msg("failed to delete user")
		return utils.WrapDatabaseError("delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.WrapNotFoundError(userResource, id)
	}

	s.log(ctx).Info().Str("user_id", id).Msg("User deleted")

	return nil
}

// writeError maps a failed insert or update to a conflict or database error
func (s *UserService) writeError(ctx context.Context, operation, email string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.WrapConflictError(userResource, "email", email)
	}
	s.log(ctx).Error().Err(err).Msg("failed to " + operation)
	return utils.WrapDatabaseError(operation, err)
}

// log returns the request logger carried by ctx, or the service logger
func (s *UserService) log(ctx context.Context) *zerolog.Logger {
	if l := utils.FromContext(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}
