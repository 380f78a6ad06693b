package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/media/sniffer"
	"fieldlog/api/internal/middleware"
	"fieldlog/api/internal/service"
)

func (h HandlerSet) CreateVisit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, apperr.Authentication("authentication required"))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.writeError(c, apperr.Validation("image is required"))
		return
	}
	defer file.Close()

	// Reject oversize payloads before buffering them.
	if header.Size > h.cfg.Storage.MaxUploadBytes {
		h.writeError(c, apperr.Validation(fmt.Sprintf("image exceeds maximum size of %d bytes", h.cfg.Storage.MaxUploadBytes)))
		return
	}

	latitude, err := strconv.ParseFloat(c.PostForm("latitude"), 64)
	if err != nil {
		h.writeError(c, apperr.Validation("latitude must be a number"))
		return
	}
	longitude, err := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if err != nil {
		h.writeError(c, apperr.Validation("longitude must be a number"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(c, apperr.Validation("could not read image"))
		return
	}

	visit, err := h.visitService.CreateVisit(c.Request.Context(), service.CreateVisitInput{
		OwnerID:      user.ID,
		PlaceName:    c.PostForm("placeName"),
		Latitude:     latitude,
		Longitude:    longitude,
		Image:        data,
		OriginalName: header.Filename,
		ContentType:  sniffer.MIMEFromHeader(header.Header),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toVisitResponse(visit))
}

func (h HandlerSet) MyVisits(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, apperr.Authentication("authentication required"))
		return
	}

	visits, err := h.visitService.VisitsByOwner(c.Request.Context(), user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]visitResponse, 0, len(visits))
	for _, visit := range visits {
		resp = append(resp, toVisitResponse(visit))
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) AllVisits(c *gin.Context) {
	visits, err := h.visitService.AllVisits(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]visitResponse, 0, len(visits))
	for _, visit := range visits {
		resp = append(resp, toVisitWithOwnerResponse(visit))
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) VisitsByUser(c *gin.Context) {
	visits, err := h.visitService.VisitsByOwner(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]visitResponse, 0, len(visits))
	for _, visit := range visits {
		resp = append(resp, toVisitResponse(visit))
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) DeleteVisit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, apperr.Authentication("authentication required"))
		return
	}

	if _, err := h.visitService.DeleteVisit(c.Request.Context(), c.Param("id"), user); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Visit deleted successfully"})
}
