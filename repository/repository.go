// Package repository holds the typed finders the board, task and subtask
// services depend on. Services never build queries themselves.
package repository

import (
	"context"
	"errors"

	"taskboard/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type BoardRepository interface {
	CreateBoard(ctx context.Context, board *models.Board) error
	FindBoard(ctx context.Context, id uint) (*models.Board, error)
	FindOwnedBoard(ctx context.Context, id, ownerID uint) (*models.Board, error)
	ListBoardsForUser(ctx context.Context, userID uint) ([]models.BoardWithRole, error)
}

type MembershipRepository interface {
	FindMembership(ctx context.Context, boardID, userID uint) (*models.BoardMember, error)
	CreateMembership(ctx context.Context, member *models.BoardMember) error
	UpdateMemberRole(ctx context.Context, boardID, userID uint, role models.Role) error
	CountOwners(ctx context.Context, boardID uint) (int64, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	FindTask(ctx context.Context, id uint) (*models.Task, error)
	ListTasksByBoard(ctx context.Context, boardID uint) ([]models.Task, error)
	// DeleteTask removes the task together with its subtasks.
	DeleteTask(ctx context.Context, id uint) error
}

type SubtaskRepository interface {
	CreateSubtask(ctx context.Context, subtask *models.Subtask) error
	FindSubtask(ctx context.Context, id uint) (*models.Subtask, error)
	ListSubtasksByTask(ctx context.Context, taskID uint) ([]models.Subtask, error)
	DeleteSubtask(ctx context.Context, id uint) error
}

// Store groups the repositories and runs units of work that must commit
// or roll back together.
type Store interface {
	Users() UserRepository
	Boards() BoardRepository
	Memberships() MembershipRepository
	Tasks() TaskRepository
	Subtasks() SubtaskRepository

	// Transaction runs fn against a Store bound to a single transaction.
	// Any error returned by fn rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
