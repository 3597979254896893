package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/leave"
)

func (s *Server) recordLeave(c *gin.Context) {
	var req leave.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	iv, err := s.Leaves.Record(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, iv)
}

func (s *Server) listLeaves(c *gin.Context) {
	id, err := queryID(c, "student_id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var out []leave.Interval
	if id > 0 {
		out, err = s.Leaves.ForStudent(c.Request.Context(), id)
	} else {
		out, err = s.Leaves.All(c.Request.Context())
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if out == nil {
		out = []leave.Interval{}
	}
	c.JSON(http.StatusOK, gin.H{"leaves": out})
}
