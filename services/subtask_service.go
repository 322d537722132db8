package services

import (
	"context"
	"errors"
	"strings"

	"taskboard/models"
	"taskboard/repository"
)

// SubtaskService authorizes through the parent task's board. Viewers can
// read subtasks but never write them, regardless of Policy.
type SubtaskService struct {
	store repository.Store
	auth  *Authorizer
}

func NewSubtaskService(store repository.Store, auth *Authorizer) *SubtaskService {
	return &SubtaskService{store: store, auth: auth}
}

func (s *SubtaskService) CreateSubtask(ctx context.Context, taskID uint, title string, callerID uint) (*models.Subtask, error) {
	task, err := s.findTask(ctx, taskID, "Task not found")
	if err != nil {
		return nil, err
	}

	if _, err := s.auth.RequireWriter(ctx, task.BoardID, callerID, "subtasks"); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidInput("Subtask title is required")
	}

	subtask := &models.Subtask{TaskID: task.ID, Title: title}
	if err := s.store.Subtasks().CreateSubtask(ctx, subtask); err != nil {
		return nil, internal("Failed to create subtask", err)
	}
	return subtask, nil
}

// ListSubtasks checks membership before task existence so non-members
// cannot discover which task ids exist.
func (s *SubtaskService) ListSubtasks(ctx context.Context, boardID, taskID, callerID uint) ([]models.Subtask, error) {
	if _, err := s.auth.RequireMembership(ctx, boardID, callerID); err != nil {
		return nil, err
	}

	task, err := s.findTask(ctx, taskID, "Task is not found in this board")
	if err != nil {
		return nil, err
	}
	if task.BoardID != boardID {
		return nil, notFound("Task is not found in this board")
	}

	subtasks, err := s.store.Subtasks().ListSubtasksByTask(ctx, task.ID)
	if err != nil {
		return nil, internal("Failed to fetch subtasks", err)
	}
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	return subtasks, nil
}

func (s *SubtaskService) DeleteSubtask(ctx context.Context, subtaskID, callerID uint) (uint, error) {
	subtask, err := s.store.Subtasks().FindSubtask(ctx, subtaskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("Subtask not found")
		}
		return 0, internal("Failed to fetch subtask", err)
	}

	task, err := s.findTask(ctx, subtask.TaskID, "Parent task not found")
	if err != nil {
		return 0, err
	}

	if _, err := s.auth.RequireWriter(ctx, task.BoardID, callerID, "subtasks"); err != nil {
		return 0, err
	}

	if err := s.store.Subtasks().DeleteSubtask(ctx, subtask.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("Subtask not found")
		}
		return 0, internal("Failed to delete subtask", err)
	}
	return subtask.ID, nil
}

func (s *SubtaskService) findTask(ctx context.Context, taskID uint, missing string) (*models.Task, error) {
	task, err := s.store.Tasks().FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(missing)
		}
		return nil, internal("Failed to fetch task", err)
	}
	return task, nil
}
