package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/service"
)

// AdminHandler handles the approval workflow. All routes sit behind
// middleware.RequireAdmin.
type AdminHandler struct {
	admin service.AdminService
	log   logging.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, log logging.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log.With("handler", "admin")}
}

// ApproveRequest sets a user's role and approval. isApproved=false rejects.
type ApproveRequest struct {
	Role       string `json:"role"`
	IsApproved *bool  `json:"isApproved"`
}

// PendingUsers godoc
// @Summary List users awaiting approval
// @Tags admin
// @Produce json
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/pending-users [get]
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	users, err := h.admin.ListPending(c.Request().Context())
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// ApproveUser godoc
// @Summary Approve a user with a role
// @Description An empty role approves as member. isApproved=false resets the user to an unapproved visitor.
// @Tags admin
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param request body ApproveRequest true "Role and approval"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{userId}/approve [put]
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	var req ApproveRequest
	if err := c.Bind(&req); err != nil {
		return toHTTPError(c, h.log, badRequestBody())
	}

	ctx := c.Request().Context()
	userID := c.Param("userId")

	var (
		user *model.User
		err  error
	)
	if req.IsApproved != nil && !*req.IsApproved {
		user, err = h.admin.Reject(ctx, userID)
	} else {
		role := req.Role
		if role == "" {
			role = model.RoleMember.String()
		}
		user, err = h.admin.Approve(ctx, userID, role)
	}
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, user)
}

// RejectUser godoc
// @Summary Reset a user to an unapproved visitor
// @Tags admin
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{userId}/reject [put]
func (h *AdminHandler) RejectUser(c echo.Context) error {
	user, err := h.admin.Reject(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, user)
}
