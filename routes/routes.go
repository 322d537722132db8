package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	controller "taskboard/controllers"
	"taskboard/middleware"
	"taskboard/repository"
	"taskboard/services"
	"taskboard/utils"
)

// Options carries the deployment-specific pieces of the route table.
type Options struct {
	Policy           services.Policy
	CORS             middleware.CORSConfig
	RateLimitStorage fiber.Storage
	AccessLog        bool
	RequestTimeout   time.Duration
}

// NewApp builds a fiber app whose unhandled errors use the API error shape.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName: "taskboard",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			if status >= fiber.StatusInternalServerError {
				utils.LogError("unhandled_error", err, map[string]interface{}{"path": c.Path()})
				return utils.ErrorResponse(c, status, "Internal server error", nil)
			}
			return utils.ErrorResponse(c, status, err.Error(), nil)
		},
	})
}

func SetupRoutes(app *fiber.App, store repository.Store, opts Options) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(middleware.RequestContext(opts.RequestTimeout))
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		}))
	}
	app.Use(middleware.CORS(opts.CORS))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := services.NewAuthorizer(store.Memberships(), opts.Policy)
	boardController := controller.NewBoardController(
		services.NewBoardService(store, auth),
		logrus.WithField("component", "boards"),
	)
	taskController := controller.NewTaskController(
		services.NewTaskService(store, auth),
		logrus.WithField("component", "tasks"),
	)
	subtaskController := controller.NewSubtaskController(
		services.NewSubtaskService(store, auth),
		logrus.WithField("component", "subtasks"),
	)

	protected := middleware.Protected(store.Users())
	membershipLimiter := middleware.MembershipRateLimiter(opts.RateLimitStorage)

	authGroup := app.Group("/auth", protected)
	authGroup.Get("/me", controller.GetCurrentUser)

	boards := app.Group("/boards", protected)
	boards.Post("/", boardController.CreateBoard)
	boards.Get("/one/:board_id", boardController.GetBoard)
	boards.Get("/all", boardController.GetBoards)
	boards.Put("/role", membershipLimiter, boardController.ChangeMemberRole)
	boards.Post("/invite-member", membershipLimiter, boardController.InviteMember)

	tasks := app.Group("/tasks", protected)
	tasks.Post("/", taskController.CreateTask)
	tasks.Get("/:board_id", taskController.GetTasks)
	tasks.Delete("/:task_id", taskController.DeleteTask)

	subtasks := app.Group("/subtasks", protected)
	subtasks.Post("/", subtaskController.CreateSubtask)
	subtasks.Get("/:task_id", subtaskController.GetSubtasks)
	subtasks.Delete("/:subtask_id", subtaskController.DeleteSubtask)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "The requested resource was not found", nil)
	})

	logrus.Info("Board, task and subtask routes initialized successfully")
}
