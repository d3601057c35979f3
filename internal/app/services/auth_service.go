package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/auth"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// TokenPair is the issued access token plus its lifetime in seconds.
type TokenPair struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// AuthService registers and authenticates the instructor account.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName, certificateNumber string) (*models.Instructor, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error)
}

type authServiceImpl struct {
	repos  *repositories.Repositories
	queue  *savequeue.Queue
	jwt    *auth.JWTService
	logger zerolog.Logger
}

// NewAuthService creates a new auth service instance
func NewAuthService(repos *repositories.Repositories, queue *savequeue.Queue, jwtService *auth.JWTService, logger zerolog.Logger) AuthService {
	return &authServiceImpl{
		repos:  repos,
		queue:  queue,
		jwt:    jwtService,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates the instructor account
func (s *authServiceImpl) Register(ctx context.Context, email, password, fullName, certificateNumber string) (*models.Instructor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, apperrors.NewValidationError("email and a password of at least 8 characters are required")
	}

	if _, err := s.repos.Instructors.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, apperrors.ErrInstructorNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	instructor := &models.Instructor{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      hash,
		FullName:          fullName,
		CertificateNumber: certificateNumber,
		CreatedAt:         time.Now().UTC(),
	}

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Instructors.Create(ctx, instructor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("instructorId", instructor.ID.String()).Msg("Registered instructor")
	return instructor, nil
}

// Login verifies credentials and issues an access token
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	instructor, err := s.repos.Instructors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrInstructorNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(instructor.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresIn, err := s.jwt.GenerateToken(instructor.ID, instructor.Email, auth.RoleInstructor)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: token, ExpiresIn: expiresIn}, nil
}

// GetInstructor returns the instructor profile
func (s *authServiceImpl) GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	return s.repos.Instructors.GetByID(ctx, id)
}
