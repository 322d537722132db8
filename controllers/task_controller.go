package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"taskboard/middleware"
	"taskboard/services"
	"taskboard/utils"
)

type CreateTaskRequest struct {
	BoardID     uint   `json:"board_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
}

type TaskController struct {
	Tasks  *services.TaskService
	Logger *logrus.Entry
}

func NewTaskController(tasks *services.TaskService, logger *logrus.Entry) *TaskController {
	return &TaskController{
		Tasks:  tasks,
		Logger: logger,
	}
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	task, err := tc.Tasks.CreateTask(c.UserContext(), req.BoardID, services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}, user.ID)
	if err != nil {
		return respondError(c, tc.Logger, "create_task", err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	boardID, ok := utils.ParseID(c.Params("board_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid board ID", nil)
	}

	tasks, err := tc.Tasks.ListTasks(c.UserContext(), boardID, user.ID)
	if err != nil {
		return respondError(c, tc.Logger, "list_tasks", err)
	}
	return c.JSON(tasks)
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	taskID, ok := utils.ParseID(c.Params("task_id"))
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid task ID", nil)
	}

	deleted, err := tc.Tasks.DeleteTask(c.UserContext(), taskID, user.ID)
	if err != nil {
		return respondError(c, tc.Logger, "delete_task", err)
	}

	utils.LogEvent("task_deleted", map[string]interface{}{
		"task_id": deleted,
		"user_id": user.ID,
	})
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
		"task_id": deleted,
	})
}
