package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// MockUserService implements UserServiceInterface
type MockUserService struct {
	GetCurrentUserFunc func(ctx context.Context, actorID string) (*models.User, error)
	GetUserFunc        func(ctx context.Context, actorID, id string) (*models.User, error)
	CreateUserFunc     func(ctx context.Context, actorID string, req *models.UserCreate) (*models.User, error)
	UpdateUserFunc     func(ctx context.Context, actorID, id string, update *models.UserUpdate) (*models.User, error)
	DeleteUserFunc     func(ctx context.Context, actorID, id string) error
}

func (m *MockUserService) GetCurrentUser(ctx context.Context, actorID string) (*models.User, error) {
	if m.GetCurrentUserFunc != nil {
		return m.GetCurrentUserFunc(ctx, actorID)
	}
	return &models.User{ID: actorID, Email: "a@b.com"}, nil
}

func (m *MockUserService) GetUser(ctx context.Context, actorID, id string) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, actorID, id)
	}
	return &models.User{ID: id}, nil
}

func (m *MockUserService) CreateUser(ctx context.Context, actorID string, req *models.UserCreate) (*models.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, actorID, req)
	}
	return &models.User{ID: "new", Email: req.Email, Name: req.Name}, nil
}

func (m *MockUserService) UpdateUser(ctx context.Context, actorID, id string, update *models.UserUpdate) (*models.User, error) {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, actorID, id, update)
	}
	return &models.User{ID: id}, nil
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, actorID, id)
	}
	return nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUserHandler_GetCurrentUser(t *testing.T) {
	h := NewUserHandler(&MockUserService{})

	rr := httptest.NewRecorder()
	h.GetCurrentUser(rr, httptest.NewRequest(http.MethodGet, constants.UserProfilePath, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.GetCurrentUser(rr, withUser(httptest.NewRequest(http.MethodGet, constants.UserProfilePath, nil), "u1"))
	require.Equal(t, http.StatusOK, rr.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &user))
	assert.Equal(t, "u1", user.ID)
}

func TestUserHandler_GetUser(t *testing.T) {
	var gotActor, gotID string
	h := NewUserHandler(&MockUserService{
		GetUserFunc: func(ctx context.Context, actorID, id string) (*models.User, error) {
			gotActor, gotID = actorID, id
			if id == "other" {
				return nil, utils.NewForbiddenError("")
			}
			return &models.User{ID: id}, nil
		},
	})

	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/u1", nil), "u1"), constants.ParamID, "u1")
	rr := httptest.NewRecorder()
	h.GetUser(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", gotActor)
	assert.Equal(t, "u1", gotID)

	req = withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/other", nil), "u1"), constants.ParamID, "other")
	rr = httptest.NewRecorder()
	h.GetUser(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUserHandler_CreateUser(t *testing.T) {
	h := NewUserHandler(&MockUserService{})

	body := map[string]string{"email": "n@b.com", "password": "abc12345", "name": "New", "role": "admin"}
	rr := httptest.NewRecorder()
	h.CreateUser(rr, withUser(jsonRequest(t, http.MethodPost, constants.UsersBasePath, body), "admin"))
	assert.Equal(t, http.StatusCreated, rr.Code)

	body["role"] = "root"
	rr = httptest.NewRecorder()
	h.CreateUser(rr, withUser(jsonRequest(t, http.MethodPost, constants.UsersBasePath, body), "admin"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_UpdateUser(t *testing.T) {
	var got *models.UserUpdate
	h := NewUserHandler(&MockUserService{
		UpdateUserFunc: func(ctx context.Context, actorID, id string, update *models.UserUpdate) (*models.User, error) {
			got = update
			return &models.User{ID: id, Name: *update.Name}, nil
		},
	})

	req := withURLParam(withUser(jsonRequest(t, http.MethodPatch, "/api/v1/users/u1", map[string]string{"name": "Annie"}), "u1"), constants.ParamID, "u1")
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "Annie", *got.Name)
	assert.Nil(t, got.Email)

	req = withURLParam(withUser(jsonRequest(t, http.MethodPatch, "/api/v1/users/u1", map[string]string{"email": "bad"}), "u1"), constants.ParamID, "u1")
	rr = httptest.NewRecorder()
	h.UpdateUser(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_DeleteUser(t *testing.T) {
	h := NewUserHandler(&MockUserService{
		DeleteUserFunc: func(ctx context.Context, actorID, id string) error {
			if id == "missing" {
				return utils.NewNotFoundError("User", id)
			}
			return nil
		},
	})

	req := withURLParam(withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/users/u1", nil), "u1"), constants.ParamID, "u1")
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, constants.MsgUserDeleted, decodeEnvelope(t, rr).Message)

	req = withURLParam(withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/users/missing", nil), "admin"), constants.ParamID, "missing")
	rr = httptest.NewRecorder()
	h.DeleteUser(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
