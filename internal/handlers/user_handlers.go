package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// UserHandler handles user-related routes
type UserHandler struct {
	userService UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService UserServiceInterface) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetCurrentUser returns the current user's profile
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	user, err := h.userService.GetCurrentUser(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

// CreateUser lets an admin create an account
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.UserCreate
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.userService.CreateUser(r.Context(), userID, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, user)
}

// GetUser returns a user by id
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID, chi.URLParam(r, constants.ParamID))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

// UpdateUser applies a partial profile update
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var update models.UserUpdate
	if err := utils.DecodeAndValidate(r, &update); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), userID, chi.URLParam(r, constants.ParamID), &update)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

// DeleteUser removes an account and revokes its tokens
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID, chi.URLParam(r, constants.ParamID)); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgUserDeleted)
}
