package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"nanum/internal/logging"
	"nanum/internal/middleware"
	"nanum/internal/model"
	"nanum/internal/service"
)

// BoardHandler exposes board categories and access checks.
type BoardHandler struct {
	boards service.BoardService
	log    logging.Logger
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(boards service.BoardService, log logging.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, log: log.With("handler", "board")}
}

// ListBoards godoc
// @Summary List board categories
// @Tags boards
// @Produce json
// @Success 200 {array} model.BoardCategory
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c echo.Context) error {
	list, err := h.boards.ListCategories(c.Request().Context())
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	if list == nil {
		list = []model.BoardCategory{}
	}
	return c.JSON(http.StatusOK, list)
}

// BoardAccess godoc
// @Summary Read and write decisions for the caller on a board
// @Tags boards
// @Produce json
// @Param slug path string true "Board slug"
// @Success 200 {object} service.AccessReport
// @Failure 404 {object} errors.ErrorResponse
// @Router /boards/{slug}/access [get]
func (h *BoardHandler) BoardAccess(c echo.Context) error {
	report, err := h.boards.CheckAccess(c.Request().Context(), c.Param("slug"), middleware.CurrentUser(c))
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, report)
}
