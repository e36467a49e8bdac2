package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrIdentifierTaken    = errors.New("company identifier already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenIssuance wraps failures to sign a token after the credentials were accepted
	ErrTokenIssuance = errors.New("could not create token")
)

type Service struct {
	db  *gorm.DB
	jwt TokenService
}

func NewService(db *gorm.DB, jwt TokenService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Name              string
	Email             string
	Password          string
	CompanyName       string
	CompanyIdentifier string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a company and its first user in one transaction and
// returns a token for the new user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	db := s.db.WithContext(ctx)

	if taken, err := exists(db, &models.User{}, "email = ?", input.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := exists(db, &models.Company{}, "identifier = ?", input.CompanyIdentifier); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrIdentifierTaken
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	company := models.Company{
		Name:       input.CompanyName,
		Identifier: input.CompanyIdentifier,
	}

	var user models.User
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&company).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrIdentifierTaken
			}
			return fmt.Errorf("creating company: %w", err)
		}

		user = models.User{
			Name:         input.Name,
			Email:        input.Email,
			PasswordHash: hash,
			CompanyID:    company.ID,
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, company.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenIssuance, err)
	}

	user.Company = &company

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Company").
		Where("email = ?", input.Email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.CompanyID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenIssuance, err)
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Company").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func exists(db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
