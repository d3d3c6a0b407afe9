package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository/mocks"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
)

// --- Register ---

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "very-secret-key", 1)
	require.NoError(t, err)

	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"
	email := "newbie@example.com"

	mockUserRepo.On("FindByUsername", ctx, username).Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		return user.Username == username && user.Email == email &&
			bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
	})).
		Run(func(args mock.Arguments) {
			userArg := args.Get(1).(*domain.User)
			userArg.ID = 5
			userArg.CreatedAt = time.Now()
		}).
		Return(nil).
		Once()

	// Act
	registeredUser, err := authService.Register(ctx, username, password, email)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, registeredUser)
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Equal(t, username, registeredUser.Username)
	assert.Empty(t, registeredUser.Password, "the hash is never returned")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "existingUser").Return(&domain.User{ID: 10, Username: "existingUser"}, nil).Once()

	_, err := authService.Register(ctx, "existingUser", "password", "email@test.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Register_SaveFails_DuplicateEntry(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "racer").Return(nil, repository.ErrUserNotFound).Once()
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicateEntry).Once()

	_, err := authService.Register(ctx, "racer", "password", "email2@test.com")

	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_InvalidInput(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)

	_, err := authService.Register(context.Background(), " ", "password", "")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = authService.Register(context.Background(), "shorty", "12345", "")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	mockUserRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

// --- Login / Authenticate ---

func TestAuthService_Login_TokenAuthenticates(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userInDb := &domain.User{ID: 1, Username: "testuser", Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, "testuser").Return(userInDb, nil).Once()

	token, err := authService.Login(ctx, "testuser", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := authService.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: 1, DisplayName: "testuser"}, principal)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "nonexistent").Return(nil, repository.ErrUserNotFound).Once()

	token, err := authService.Login(ctx, "nonexistent", "password")

	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_IncorrectPassword(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userInDb := &domain.User{ID: 1, Username: "testuser", Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, "testuser").Return(userInDb, nil).Once()

	token, err := authService.Login(ctx, "testuser", "wrongpassword")

	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	authService, _ := service.NewAuthService(new(mocks.UserRepository), "test-secret", 24)

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	valid := jwt.MapClaims{"user_id": 3, "username": "x", "exp": time.Now().Add(time.Hour).Unix()}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": sign("other-secret", jwt.SigningMethodHS256, valid),
		"expired":      sign("test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 3, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no user id":   sign("test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"username": "x", "exp": time.Now().Add(time.Hour).Unix()}),
	}
	for name, tok := range cases {
		_, err := authService.Authenticate(tok)
		assert.True(t, errors.Is(err, service.ErrAuthenticationFailed), name)
	}
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	_, err := service.NewAuthService(new(mocks.UserRepository), "", 1)
	assert.Error(t, err)
}
