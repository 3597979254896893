package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
)

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.Parse:
		return http.StatusUnprocessableEntity
	case apperr.NotFound, apperr.NoData:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.Connection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON with the status for its kind. Unclassified
// errors are logged and reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	body := gin.H{"error": err.Error(), "kind": kind.String()}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["fields"] = fields
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "kind", kind.String(), "err", err)
		if kind == apperr.Unknown {
			body["error"] = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a body or query that could not be decoded at all.
func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.Validation.String()})
}
