package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/roster"
)

func (s *Server) listBatches(c *gin.Context) {
	batches, err := s.Roster.Batches(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	// The selector always offers All first.
	c.JSON(http.StatusOK, gin.H{"batches": batches, "selectable": append([]string{roster.AllBatches}, batches...)})
}

func (s *Server) addBatch(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if err := s.Roster.AddBatch(c.Request.Context(), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (s *Server) listStudents(c *gin.Context) {
	students, err := s.Roster.Students(c.Request.Context(), c.Query("batch"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type studentRequest struct {
	ID int `json:"id"`
	roster.StudentInput
}

func (s *Server) addStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	st, err := s.Roster.Add(c.Request.Context(), req.ID, req.StudentInput)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) updateStudent(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var in roster.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, err)
		return
	}
	st, err := s.Roster.Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteStudent(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Roster.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("request", "id", "gt=0", "student id must be a positive integer")
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter.
func queryID(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("request", name, "gt=0", name+" must be a positive integer")
	}
	return id, nil
}
