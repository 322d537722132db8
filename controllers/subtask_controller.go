package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/middleware"
	"taskboard/services"
	"taskboard/utils"
)

type CreateSubtaskRequest struct {
	TaskID uint   `json:"task_id" validate:"required"`
	Title  string `json:"title" validate:"required,max=200"`
}

type SubtaskController struct {
	Subtasks *services.SubtaskService
	Logger   *logrus.Entry
}

func NewSubtaskController(subtasks *services.SubtaskService, logger *logrus.Entry) *SubtaskController {
	return &SubtaskController{
		Subtasks: subtasks,
		Logger:   logger,
	}
}

func (sc *SubtaskController) CreateSubtask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateSubtaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	subtask, err := sc.Subtasks.CreateSubtask(c.UserContext(), req.TaskID, req.Title, user.ID)
	if err != nil {
		return respondError(c, sc.Logger, "create_subtask", err)
	}
	return c.Status(fiber.StatusCreated).JSON(subtask)
}

// GetSubtasks lists the subtasks of a task; board_id comes from the query
// string and must match the task's board.
func (sc *SubtaskController) GetSubtasks(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	taskID, ok := utils.ParseID(c.Params("task_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task ID", nil)
	}
	boardID, ok := utils.ParseID(c.Query("board_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "board_id query parameter is required", nil)
	}

	subtasks, err := sc.Subtasks.ListSubtasks(c.UserContext(), boardID, taskID, user.ID)
	if err != nil {
		return respondError(c, sc.Logger, "list_subtasks", err)
	}
	return c.JSON(subtasks)
}

func (sc *SubtaskController) DeleteSubtask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	subtaskID, ok := utils.ParseID(c.Params("subtask_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid subtask ID", nil)
	}

	deleted, err := sc.Subtasks.DeleteSubtask(c.UserContext(), subtaskID, user.ID)
	if err != nil {
		return respondError(c, sc.Logger, "delete_subtask", err)
	}

	utils.LogEvent("subtask_deleted", map[string]interface{}{
		"subtask_id": deleted,
		"user_id":    user.ID,
	})
	return c.JSON(fiber.Map{
		"message":    "Subtask deleted successfully",
		"subtask_id": deleted,
	})
}
