package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/middleware"
	"taskboard/services"
	"taskboard/utils"
)

type CreateBoardRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type ChangeRoleRequest struct {
	BoardID uint   `json:"board_id" validate:"required"`
	UserID  uint   `json:"user_id" validate:"required"`
	NewRole string `json:"new_role" validate:"required"`
}

type InviteMemberRequest struct {
	BoardID uint   `json:"board_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

type BoardController struct {
	Boards *services.BoardService
	Logger *logrus.Entry
}

func NewBoardController(boards *services.BoardService, logger *logrus.Entry) *BoardController {
	return &BoardController{
		Boards: boards,
		Logger: logger,
	}
}

// CreateBoard creates a board owned by the caller
func (bc *BoardController) CreateBoard(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	board, err := bc.Boards.CreateBoard(c.UserContext(), req.Name, user.ID)
	if err != nil {
		return respondError(c, bc.Logger, "create_board", err)
	}

	utils.LogEvent("board_created", map[string]interface{}{
		"board_id": board.ID,
		"user_id":  user.ID,
	})
	return c.Status(fiber.StatusCreated).JSON(board)
}

// GetBoard returns a single board, visible to its owner only
func (bc *BoardController) GetBoard(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	boardID, ok := utils.ParseID(c.Params("board_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid board ID", nil)
	}

	board, err := bc.Boards.GetBoard(c.UserContext(), boardID, user.ID)
	if err != nil {
		return respondError(c, bc.Logger, "get_board", err)
	}

	return c.JSON(fiber.Map{
		"id":   board.ID,
		"name": board.Name,
	})
}

// GetBoards lists every board the caller belongs to
func (bc *BoardController) GetBoards(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	boards, err := bc.Boards.ListBoards(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, bc.Logger, "list_boards", err)
	}
	return c.JSON(boards)
}

// ChangeMemberRole lets an owner change another member's role
func (bc *BoardController) ChangeMemberRole(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	change, err := bc.Boards.ChangeRole(c.UserContext(), req.BoardID, req.UserID, req.NewRole, user.ID)
	if err != nil {
		return respondError(c, bc.Logger, "change_role", err)
	}

	utils.LogEvent("member_role_changed", map[string]interface{}{
		"board_id":   change.BoardID,
		"user_id":    change.UserID,
		"new_role":   change.NewRole.String(),
		"changed_by": user.ID,
	})
	return c.JSON(fiber.Map{
		"message":  "Updated Role",
		"user_id":  change.UserID,
		"board_id": change.BoardID,
		"new_role": change.NewRole,
	})
}

// InviteMember adds an existing user to the board as a member
func (bc *BoardController) InviteMember(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req InviteMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	invitation, err := bc.Boards.InviteMember(c.UserContext(), req.BoardID, req.Email, user.ID)
	if err != nil {
		return respondError(c, bc.Logger, "invite_member", err)
	}

	utils.LogEvent("member_invited", map[string]interface{}{
		"board_id":   invitation.BoardID,
		"user_id":    invitation.UserID,
		"invited_by": user.ID,
	})
	return c.JSON(fiber.Map{
		"message":    "Member added successfully",
		"added_user": invitation.AddedUser,
	})
}
