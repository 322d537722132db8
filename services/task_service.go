package services

import (
	"context"
	"errors"
	"strings"

	"taskboard/models"
	"taskboard/repository"
)

// TaskInput carries the caller-supplied task fields.
type TaskInput struct {
	Title       string
	Description string
	Status      string
}

type TaskService struct {
	store repository.Store
	auth  *Authorizer
}

func NewTaskService(store repository.Store, auth *Authorizer) *TaskService {
	return &TaskService{store: store, auth: auth}
}

func (s *TaskService) CreateTask(ctx context.Context, boardID uint, input TaskInput, callerID uint) (*models.Task, error) {
	if _, err := s.auth.requireTaskWriter(ctx, boardID, callerID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalidInput("Task title is required")
	}
	status := input.Status
	switch status {
	case "":
		status = models.TaskStatusTodo
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone:
	default:
		return nil, invalidInput("Invalid task status")
	}

	task := &models.Task{
		BoardID:     boardID,
		Title:       title,
		Description: input.Description,
		Status:      status,
	}
	if err := s.store.Tasks().CreateTask(ctx, task); err != nil {
		return nil, internal("Failed to create task", err)
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, boardID, callerID uint) ([]models.Task, error) {
	if _, err := s.auth.RequireMembership(ctx, boardID, callerID); err != nil {
		return nil, err
	}

	tasks, err := s.store.Tasks().ListTasksByBoard(ctx, boardID)
	if err != nil {
		return nil, internal("Failed to fetch tasks", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// DeleteTask removes a task and its subtasks.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, callerID uint) (uint, error) {
	task, err := s.store.Tasks().FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("Task not found")
		}
		return 0, internal("Failed to fetch task", err)
	}

	if _, err := s.auth.requireTaskWriter(ctx, task.BoardID, callerID); err != nil {
		return 0, err
	}

	if err := s.store.Tasks().DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("Task not found")
		}
		return 0, internal("Failed to delete task", err)
	}
	return task.ID, nil
}
