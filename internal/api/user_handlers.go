package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ksred/fullstack-boilerplate/internal/services"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
)

// userID extracts and checks the :id path parameter
func userID(c *gin.Context) (string, error) {
	id := c.Param("id")
	// uuid.Parse also accepts braced, urn and upper-case forms; IDs are canonical lower-case
	if len(id) != 36 {
		return "", utils.InvalidFieldError("id", "Invalid User ID format")
	}
	if id != strings.ToLower(id) {
		return "", utils.InvalidFieldError("id", "Invalid User ID format")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", utils.InvalidFieldError("id", "Invalid User ID format")
	}
	return id, nil
}

// listUsersHandler godoc
// @Summary List users
// @Description Get all users, newest first
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Failure 503 {object} ErrorResponse
// @Router /api/users [get]
func (s *Server) listUsersHandler(c *gin.Context) {
	users, err := s.userService.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// createUserHandler godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body services.CreateUserRequest true "User to create"
// @Success 201 {object} models.User
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/users [post]
func (s *Server) createUserHandler(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindingError(err))
		return
	}

	user, err := s.userService.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// getUserHandler godoc
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path string true "User ID (UUID)"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/users/{id} [get]
func (s *Server) getUserHandler(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	user, err := s.userService.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// updateUserHandler godoc
// @Summary Update a user
// @Description Update the username and/or email of a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID (UUID)"
// @Param request body services.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/users/{id} [put]
func (s *Server) updateUserHandler(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindingError(err))
		return
	}

	user, err := s.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// deleteUserHandler godoc
// @Summary Delete a user
// @Tags users
// @Produce json
// @Param id path string true "User ID (UUID)"
// @Success 200 {object} services.DeleteUserResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/users/{id} [delete]
func (s *Server) deleteUserHandler(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.userService.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.DeleteUserResponse{Success: true})
}
