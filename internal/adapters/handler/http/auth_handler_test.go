package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupAuthHandler() (*gin.Engine, *MockUserRepository, *services.TokenService) {
	gin.SetMode(gin.TestMode)

	mockRepo := new(MockUserRepository)
	tokens := services.NewTokenService("handler-secret", "habitlite-test", time.Hour, mockRepo)
	authHandler := NewAuthHandler(services.NewAuthService(mockRepo, tokens), zap.NewNop())

	router := gin.New()
	authHandler.RegisterRoutes(router.Group(""))

	return router, mockRepo, tokens
}

func postJSON(router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success: Should return 201 and created user (No Password)", func(t *testing.T) {
		router, mockRepo, _ := setupAuthHandler()

		payload := map[string]string{
			"email":    "walker@habitlite.dev",
			"password": "DrinkWater8Glasses",
		}

		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		w := postJSON(router, "/auth/register", payload)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response userResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, payload["email"], response.Email)
		assert.NotEmpty(t, response.ID)
		assert.NotContains(t, w.Body.String(), "password")

		mockRepo.AssertExpectations(t)
	})

	badPayloads := map[string]map[string]string{
		"invalid email":      {"email": "not-an-email", "password": "Password123!"},
		"password too short": {"email": "valid@habitlite.dev", "password": "short"},
		"missing password":   {"email": "valid@habitlite.dev"},
	}
	for name, payload := range badPayloads {
		t.Run("Fail: 400 for "+name, func(t *testing.T) {
			router, mockRepo, _ := setupAuthHandler()

			w := postJSON(router, "/auth/register", payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockRepo.AssertNotCalled(t, "Create")
		})
	}

	t.Run("Fail: Should return 409 Conflict if email exists", func(t *testing.T) {
		router, mockRepo, _ := setupAuthHandler()

		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrEmailAlreadyExists)

		w := postJSON(router, "/auth/register", map[string]string{
			"email":    "duplicate@habitlite.dev",
			"password": "LongEnoughPassword",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "email already exists")
	})

	t.Run("Fail: Should return 500 on storage failure", func(t *testing.T) {
		router, mockRepo, _ := setupAuthHandler()

		mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db connection lost"))

		w := postJSON(router, "/auth/register", map[string]string{
			"email":    "crash@habitlite.dev",
			"password": "LongEnoughPassword",
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal server error")
		assert.NotContains(t, w.Body.String(), "db connection lost")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	user, err := domain.NewUser("user-42", "runner@habitlite.dev")
	require.NoError(t, err)
	require.NoError(t, user.SetPassword("MorningRun5k!"))

	t.Run("Success: returns a token that validates", func(t *testing.T) {
		router, mockRepo, tokens := setupAuthHandler()

		mockRepo.On("GetByEmail", mock.Anything, "runner@habitlite.dev").Return(user, nil)
		mockRepo.On("GetByID", mock.Anything, "user-42").Return(user, nil)

		w := postJSON(router, "/auth/login", map[string]string{
			"email":    " Runner@habitlite.dev ",
			"password": "MorningRun5k!",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var response tokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Bearer", response.Type)

		subject, err := tokens.ValidateToken(context.Background(), response.Token)
		assert.NoError(t, err)
		assert.Equal(t, "user-42", subject)
	})

	t.Run("Fail: wrong password is 401", func(t *testing.T) {
		router, mockRepo, _ := setupAuthHandler()

		mockRepo.On("GetByEmail", mock.Anything, "runner@habitlite.dev").Return(user, nil)

		w := postJSON(router, "/auth/login", map[string]string{
			"email":    "runner@habitlite.dev",
			"password": "wrong-password",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Fail: unknown email is indistinguishable from wrong password", func(t *testing.T) {
		router, mockRepo, _ := setupAuthHandler()

		mockRepo.On("GetByEmail", mock.Anything, "ghost@habitlite.dev").Return(nil, domain.ErrUserNotFound)

		w := postJSON(router, "/auth/login", map[string]string{
			"email":    "ghost@habitlite.dev",
			"password": "whatever123",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})
}
