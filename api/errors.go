package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nonsonwune/admission_cycle/archive"
	"github.com/nonsonwune/admission_cycle/auth"
	"github.com/nonsonwune/admission_cycle/importer"
	"github.com/nonsonwune/admission_cycle/query"
)

// respondError maps err to a status and a body. Unexpected errors are logged
// with op and key and answered with a generic message.
func (s *Server) respondError(c *gin.Context, op, key string, err error) {
	var ie *importer.ImportError
	var ve *auth.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{"error": ie.Message, "code": ie.Code, "details": ie.Context})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large."})
	case errors.Is(err, archive.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Archived upload not found."})
	case errors.Is(err, query.ErrUnknownTable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Table " + key + " does not exist."})
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists."})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
	case errors.Is(err, auth.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
	case errors.Is(err, auth.ErrBadSignature), errors.Is(err, auth.ErrMalformedToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		s.logError(op, key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (s *Server) logError(op, key string, err error) {
	log.Printf("Error in %s (%s): %v", op, key, err)
}
