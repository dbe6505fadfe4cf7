package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nonsonwune/admission_cycle/auth"
)

func (s *Server) register(c *gin.Context) {
	var input auth.Registration
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data."})
		return
	}
	u, err := s.gate.Register(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, "register", input.Email, err)
		return
	}
	token, _, err := s.gate.Issue(u.Email)
	if err != nil {
		s.respondError(c, "issue token", u.Email, err)
		return
	}
	s.setSession(c, token)
	c.JSON(http.StatusOK, gin.H{"token": token, "message": "User registered successfully."})
}

func (s *Server) login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required."})
		return
	}
	u, err := s.gate.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		s.respondError(c, "login", input.Email, err)
		return
	}
	token, _, err := s.gate.Issue(u.Email)
	if err != nil {
		s.respondError(c, "issue token", u.Email, err)
		return
	}
	s.setSession(c, token)
	c.JSON(http.StatusOK, gin.H{"token": token, "message": "Login successful."})
}

func (s *Server) logout(c *gin.Context) {
	s.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) validateToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (s *Server) user(c *gin.Context) {
	u, err := s.gate.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, "profile", currentUser(c), err)
		return
	}
	c.JSON(http.StatusOK, u)
}
