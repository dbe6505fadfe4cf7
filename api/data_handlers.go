package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nonsonwune/admission_cycle/importer"
)

func (s *Server) readTable(c *gin.Context) {
	table := c.Param("table")
	res, err := s.query.Table(c.Request.Context(), table)
	if err != nil {
		s.respondError(c, "read table", table, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Rows})
}

func (s *Server) updateTable(c *gin.Context) {
	table := c.Param("table")
	s.importFile(c, table, fmt.Sprintf("Data updated successfully in %s!", table))
}

func (s *Server) withdrawUpload(c *gin.Context) {
	s.importFile(c, "WITHDRAWS", "Withdrawals processed successfully.")
}

func (s *Server) importFile(c *gin.Context, table, message string) {
	file, header, ok := s.formFile(c, table)
	if !ok {
		return
	}
	defer file.Close()

	res, err := s.importer.ImportData(c.Request.Context(), importer.Upload{
		Table:       table,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		UploadedBy:  currentUser(c),
		ClientAddr:  c.ClientIP(),
	})
	if err != nil {
		s.respondError(c, "import", table, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "result": res})
}

func (s *Server) validateTable(c *gin.Context) {
	table := c.Param("table")
	file, _, ok := s.formFile(c, table)
	if !ok {
		return
	}
	defer file.Close()

	report, err := s.importer.Validate(table, file)
	if err != nil {
		s.respondError(c, "validate", table, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// formFile reads the "file" field of a multipart upload, capped at the
// configured size. It writes the error response itself.
func (s *Server) formFile(c *gin.Context, table string) (multipart.File, *multipart.FileHeader, bool) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large."})
			return nil, nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required in the 'file' field."})
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, "open upload", table, err)
		return nil, nil, false
	}
	return file, header, true
}

func (s *Server) withdrawStudent(c *gin.Context) {
	var input struct {
		AppNo string `json:"app_no"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.AppNo) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_no is required."})
		return
	}
	appNo := strings.TrimSpace(input.AppNo)
	res, err := s.importer.WithdrawApplicant(c.Request.Context(), appNo, currentUser(c), c.ClientIP())
	if err != nil {
		s.respondError(c, "withdraw", appNo, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Student %s withdrawn successfully.", appNo), "result": res})
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.query.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, "stats", "", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) fees(c *gin.Context) {
	appNo, ok := requiredQuery(c, "query")
	if !ok {
		return
	}
	res, err := s.query.Fees(c.Request.Context(), appNo)
	if err != nil {
		s.respondError(c, "fees", appNo, err)
		return
	}
	if res.Empty() {
		c.JSON(http.StatusOK, gin.H{"message": "No fees record found for application number: " + appNo})
		return
	}
	c.JSON(http.StatusOK, res.Rows[0])
}

func (s *Server) students(c *gin.Context) {
	term, ok := requiredQuery(c, "query")
	if !ok {
		return
	}
	res, err := s.query.Students(c.Request.Context(), term)
	if err != nil {
		s.respondError(c, "students", term, err)
		return
	}
	if res.Empty() {
		c.JSON(http.StatusOK, gin.H{"message": "No student found for query: " + term})
		return
	}
	c.JSON(http.StatusOK, res.Rows)
}

func (s *Server) iterations(c *gin.Context) {
	raw, ok := requiredQuery(c, "iteration")
	if !ok {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "iteration must be a number."})
		return
	}
	res, err := s.query.Iteration(c.Request.Context(), n)
	if err != nil {
		s.respondError(c, "iterations", raw, err)
		return
	}
	if res.Empty() {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("No records found for iteration: %d", n)})
		return
	}
	c.JSON(http.StatusOK, res.Rows)
}

func (s *Server) iterationCount(c *gin.Context) {
	sum, err := s.query.IterationSummary(c.Request.Context())
	if err != nil {
		s.respondError(c, "iteration count", "", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// archivedUpload streams the stored copy of an earlier upload.
func (s *Server) archivedUpload(c *gin.Context) {
	key, ok := requiredQuery(c, "key")
	if !ok {
		return
	}
	rc, entry, err := s.importer.OpenArchived(c.Request.Context(), key)
	if err != nil {
		s.respondError(c, "archived upload", key, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "text/csv", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", entry.FileName),
	})
}

func requiredQuery(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("query parameter %q is required.", name)})
		return "", false
	}
	return v, true
}
