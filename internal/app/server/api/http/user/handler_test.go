package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"savesync/internal/domain/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, login, password string) (int, error) {
	args := m.Called(ctx, login, password)
	return args.Int(0), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, login, password string) (user.User, error) {
	args := m.Called(ctx, login, password)
	return args.Get(0).(user.User), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, userID int) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Validate(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

func TestHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "created", wantStatus: http.StatusCreated},
		{name: "duplicate", err: user.ErrAlreadyExists, wantStatus: http.StatusConflict},
		{name: "weak password", err: fmt.Errorf("%w: too short", user.ErrInvalidInput), wantStatus: http.StatusUnprocessableEntity},
		{name: "database", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("Register", mock.Anything, "player_one", "Secr3t!pw").Return(5, tt.err)

			_, api := humatest.New(t)
			NewHandler(svc, new(MockSessionService), slog.Default(), nil).SetupRoutes(api)

			resp := api.Post("/api/v1/auth/register", map[string]any{
				"login":    "player_one",
				"password": "Secr3t!pw",
			})
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	svc := new(MockUserService)
	sessions := new(MockSessionService)
	h := NewHandler(svc, sessions, slog.Default(), nil)

	svc.On("Authenticate", mock.Anything, "player_one", "Secr3t!pw").Return(user.User{ID: 5}, nil)
	svc.On("Authenticate", mock.Anything, "player_one", "nope").Return(user.User{}, user.ErrInvalidAuth)
	sessions.On("Create", mock.Anything, 5).Return("tok-123", nil)

	in := &loginInput{}
	in.Body.Login = "player_one"
	in.Body.Password = "Secr3t!pw"

	out, err := h.login(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", out.Body.Token)

	in.Body.Password = "nope"
	out, err = h.login(context.Background(), in)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}
