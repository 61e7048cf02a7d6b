package handlers

import (
	"net/http"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// AuthHandler handles authentication-related routes
type AuthHandler struct {
	authService AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthServiceInterface) *AuthHandler {
	if authService == nil {
		panic("authService cannot be nil")
	}
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg models.UserRegistration
	if err := utils.DecodeAndValidate(r, &reg); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.authService.Register(r.Context(), &reg)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.UserCredentials
	if err := utils.DecodeAndValidate(r, &creds); err != nil {
		utils.WriteError(w, err)
		return
	}

	pair, err := h.authService.Login(r.Context(), &creds)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, pair)
}

// Logout revokes the refresh token in the body
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgLogoutSuccess)
}

// RefreshTokens rotates the refresh token in the body
func (h *AuthHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	pair, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, pair)
}

// ForgotPassword answers the same way whether or not the email is registered
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgResetEmailSent)
}

// ResetPassword handles password reset with a reset token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgPasswordReset)
}

// SendVerificationEmail sends a verification token to the authenticated user
func (h *AuthHandler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	if err := h.authService.SendVerificationEmail(r.Context(), userID); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgVerificationEmailSent)
}

// VerifyEmail handles email verification with a verification token
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), req.Token); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.Message(w, http.StatusOK, constants.MsgEmailVerified)
}
