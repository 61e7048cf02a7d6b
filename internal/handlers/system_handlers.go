package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	BuildTime   string `json:"buildTime,omitempty"`
	Environment string `json:"environment"`
}

// SystemHandler serves the unauthenticated infrastructure endpoints.
type SystemHandler struct {
	db    HealthChecker
	build BuildInfo
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db HealthChecker, build BuildInfo) *SystemHandler {
	return &SystemHandler{db: db, build: build}
}

// Health checks the database connection
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DBHealthCheckTimeout)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		utils.Error(w, http.StatusServiceUnavailable, "service_unavailable", "Service is not healthy", nil)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.build.Version,
	})
}

// Version returns build information
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.build)
}

// Poll lets clients detect a redeploy by comparing versions
func (h *SystemHandler) Poll(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{"version": h.build.Version})
}
