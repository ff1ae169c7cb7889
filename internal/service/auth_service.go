package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/entity"
)

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) (int64, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(hashed, plain string) bool
}

type TokenIssuer interface {
	IssueAccessToken(userID int64, role entity.Role) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	Verify(token string, kind auth.TokenType) (*auth.Claims, error)
}

const tokenTypeBearer = "Bearer"

var errInvalidCredentials = &entity.UnauthorizedError{Message: "Invalid email or password"}

type AuthService struct {
	users             UserStore
	hasher            PasswordHasher
	tokens            TokenIssuer
	minPasswordLength int
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, minPasswordLength int) *AuthService {
	return &AuthService{
		users:             users,
		hasher:            hasher,
		tokens:            tokens,
		minPasswordLength: minPasswordLength,
	}
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, req entity.RegisterRequest) (*entity.Session, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, &entity.ValidationError{Message: "Name, email and password are required"}
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, &entity.ValidationError{Field: "password", Message: s.passwordTooShort("Password")}
	}
	if !strings.Contains(email, "@") {
		return nil, &entity.ValidationError{Field: "email", Message: "Invalid email format"}
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, &entity.ValidationError{Field: "email", Message: "Email is already registered"}
	}
	var notFound *entity.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, storeError("find user", err)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Error hashing password")
		return nil, err
	}

	id, err := s.users.CreateUser(ctx, &entity.User{Name: name, Email: email, Password: hashed, Role: entity.RoleCustomer})
	if err != nil {
		return nil, storeError("create user", err)
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError("reload user", err)
	}

	logger.Info().Msgf("User %d registered", user.ID)
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, req entity.LoginRequest) (*entity.Session, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, &entity.ValidationError{Message: "Email and password are required"}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			return nil, errInvalidCredentials
		}
		return nil, storeError("find user", err)
	}
	if !s.hasher.Check(user.Password, req.Password) {
		logger.Warn().Msgf("Failed login for user %d", user.ID)
		return nil, errInvalidCredentials
	}

	return s.session(user)
}

// Refresh trades a valid refresh token for a new access token carrying the user's current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, &entity.UnauthorizedError{Message: "Refresh token has expired, please login again"}
		}
		return nil, &entity.UnauthorizedError{Message: "Invalid refresh token"}
	}

	userID, _ := claims.UserID()
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &entity.UnauthorizedError{Message: "User not found"}
		}
		return nil, storeError("find user", err)
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &entity.Session{AccessToken: access, TokenType: tokenTypeBearer}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

// UpdateProfile renames the user. A blank name leaves the profile unchanged.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req entity.UpdateProfileRequest) (*entity.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return user, nil
	}
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return nil, storeError("update user", err)
	}
	user.Name = name
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req entity.ChangePasswordRequest) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(user.Password, req.CurrentPassword) {
		return &entity.ValidationError{Field: "current_password", Message: "Current password is incorrect"}
	}
	if len(req.NewPassword) < s.minPasswordLength {
		return &entity.ValidationError{Field: "new_password", Message: s.passwordTooShort("New password")}
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return storeError("update password", err)
	}
	logger.Info().Msgf("User %d changed password", userID)
	return nil
}

func (s *AuthService) session(user *entity.User) (*entity.Session, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &entity.Session{User: user, AccessToken: access, RefreshToken: refresh, TokenType: tokenTypeBearer}, nil
}

func (s *AuthService) passwordTooShort(label string) string {
	return label + " must be at least " + strconv.Itoa(s.minPasswordLength) + " characters"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
