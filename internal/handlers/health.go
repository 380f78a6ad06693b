package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Storage     string `json:"storage"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "error"
			h.log.Error().Err(err).Msg("database ping failed")
		}
	}

	storageStatus := "ok"
	if h.blobHealth != nil {
		if err := h.blobHealth.Ping(ctx); err != nil {
			status = "degraded"
			storageStatus = "error"
			h.log.Error().Err(err).Msg("object store ping failed")
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      status,
		Database:    dbStatus,
		Storage:     storageStatus,
		Environment: h.cfg.Environment,
	})
}
