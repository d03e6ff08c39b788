package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notewave/notewave/internal/note"
	"github.com/notewave/notewave/internal/note/service"
	"github.com/notewave/notewave/internal/users"
)

// RegisterNoteRoutes mounts the persistence surface consumed by editing
// clients. Every content-changing operation appends a version log entry.
func RegisterNoteRoutes(r gin.IRouter, svc service.Service) {
	g := r.Group("/api/notes")
	g.POST("", createNote(svc))
	g.GET("", listNotes(svc))
	g.GET("/:id", getNote(svc))
	g.PUT("/:id", updateNote(svc))
	g.DELETE("/:id", deleteNote(svc))
	g.GET("/:id/versions", listVersions(svc))
	g.POST("/:id/restore", restoreVersion(svc))
	g.POST("/:id/invite", inviteCollaborator(svc))
}

func createNote(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title   string      `json:"title"`
			Content interface{} `json:"content"`
			UserID  string      `json:"userId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := svc.Create(c.Request.Context(), req.Title, req.Content, req.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, n)
	}
}

func listNotes(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		collaborator := c.Query("collaborator")
		if collaborator == "" {
			collaborator = c.Query("userId")
		}
		list, err := svc.List(c.Request.Context(), collaborator)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getNote(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func updateNote(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title   *string     `json:"title,omitempty"`
			Content interface{} `json:"content,omitempty"`
			UserID  string      `json:"userId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := svc.Update(c.Request.Context(), c.Param("id"), req.Title, req.Content, req.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func deleteNote(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
	}
}

func listVersions(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		versions, err := svc.ListVersions(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, versions)
	}
}

func restoreVersion(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			VersionID string `json:"versionId"`
			UserID    string `json:"userId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := svc.RestoreVersion(c.Request.Context(), c.Param("id"), req.VersionID, req.UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func inviteCollaborator(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := svc.Invite(c.Request.Context(), c.Param("id"), req.Email)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, note.ErrAlreadyCollaborator):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is already a collaborator"})
	case errors.Is(err, note.ErrValidation), errors.Is(err, users.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
