package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/entities"
)

type UsersController struct {
	admin     UserAdmin
	directory UserDirectory
}

func NewUsersController(admin UserAdmin, directory UserDirectory) *UsersController {
	return &UsersController{admin: admin, directory: directory}
}

// Me handles GET /api/me.
func (uc *UsersController) Me(c *gin.Context) {
	if user := auth.CurrentUser(c); user != nil {
		c.JSON(http.StatusOK, gin.H{
			"user":      toUserDTO(user),
			"auth_type": auth.GetAuthType(c),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      nil,
		"role":      auth.GetUserRole(c),
		"auth_type": auth.GetAuthType(c),
	})
}

// ListUsers handles GET /api/admin/users.
func (uc *UsersController) ListUsers(c *gin.Context) {
	users, err := uc.directory.ListUsers()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{"users": dtos, "total": len(dtos)})
}

// RoleRequest is the body of PUT /api/admin/users/:id/role.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Promote grants the author role to a reader.
func (uc *UsersController) Promote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := uc.admin.PromoteToAuthor(id)
	if err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserDTO(user))
}

func (uc *UsersController) SetRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "role is required")
		return
	}
	role := entities.UserRole(req.Role)
	if !role.Valid() {
		respondBadRequest(c, "role must be one of reader, author, admin")
		return
	}
	if id == auth.GetUserID(c) && role != entities.UserRoleAdmin {
		respondBadRequest(c, "you cannot demote yourself")
		return
	}
	if err := uc.admin.SetRole(id, role); err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, auth.ErrUserNotFound):
		respondNotFound(c, "user")
	case errors.Is(err, auth.ErrInvalidRole):
		respondBadRequest(c, "invalid role")
	default:
		respondInternalError(c, err, "update user")
	}
}
