package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"taskboard/models"
)

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository             { return s }
func (s *GormStore) Boards() BoardRepository           { return s }
func (s *GormStore) Memberships() MembershipRepository { return s }
func (s *GormStore) Tasks() TaskRepository             { return s }
func (s *GormStore) Subtasks() SubtaskRepository       { return s }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps gorm errors onto the package sentinels. Duplicate keys
// arrive as gorm.ErrDuplicatedKey only when the connection was opened with
// TranslateError.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Users

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

// FindUserByEmail prefers an exact match. The case-insensitive fallback
// only resolves when exactly one account matches, so addresses that differ
// only by case never resolve to the wrong user.
func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translate(err, "find user by email")
	}

	var users []models.User
	err = s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "find user by email")
	}
	if len(users) != 1 {
		return nil, fmt.Errorf("find user by email: %w", ErrNotFound)
	}
	return &users[0], nil
}

// Boards

func (s *GormStore) CreateBoard(ctx context.Context, board *models.Board) error {
	return translate(s.db.WithContext(ctx).Omit("Owner", "Members", "Tasks").Create(board).Error, "create board")
}

func (s *GormStore) FindBoard(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).First(&board, id).Error; err != nil {
		return nil, translate(err, "find board")
	}
	return &board, nil
}

func (s *GormStore) FindOwnedBoard(ctx context.Context, id, ownerID uint) (*models.Board, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&board).Error; err != nil {
		return nil, translate(err, "find owned board")
	}
	return &board, nil
}

func (s *GormStore) ListBoardsForUser(ctx context.Context, userID uint) ([]models.BoardWithRole, error) {
	var rows []models.BoardWithRole
	err := s.db.WithContext(ctx).
		Table("boards").
		Select("boards.id AS id, boards.name AS name, board_members.role AS role").
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ?", userID).
		Order("boards.id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "list boards")
	}
	return rows, nil
}

// Memberships

func (s *GormStore) FindMembership(ctx context.Context, boardID, userID uint) (*models.BoardMember, error) {
	var member models.BoardMember
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error
	if err != nil {
		return nil, translate(err, "find membership")
	}
	return &member, nil
}

func (s *GormStore) CreateMembership(ctx context.Context, member *models.BoardMember) error {
	return translate(s.db.WithContext(ctx).Omit("User").Create(member).Error, "create membership")
}

func (s *GormStore) UpdateMemberRole(ctx context.Context, boardID, userID uint, role models.Role) error {
	res := s.db.WithContext(ctx).
		Model(&models.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Update("role", role)
	if res.Error != nil {
		return translate(res.Error, "update member role")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update member role: %w", ErrNotFound)
	}
	return nil
}

// CountOwners locks the board's owner rows FOR UPDATE, so called inside a
// transaction it holds them until commit. Postgres rejects FOR UPDATE on an
// aggregate, hence the pluck.
func (s *GormStore) CountOwners(ctx context.Context, boardID uint) (int64, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.BoardMember{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("board_id = ? AND LOWER(role) = ?", boardID, string(models.RoleOwner)).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, translate(err, "count owners")
	}
	return int64(len(ids)), nil
}

// Tasks

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	return translate(s.db.WithContext(ctx).Omit("Subtasks").Create(task).Error, "create task")
}

func (s *GormStore) FindTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate(err, "find task")
	}
	return &task, nil
}

func (s *GormStore) ListTasksByBoard(ctx context.Context, boardID uint) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("id").Find(&tasks).Error; err != nil {
		return nil, translate(err, "list tasks")
	}
	return tasks, nil
}

func (s *GormStore) DeleteTask(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Subtask{}).Error; err != nil {
			return translate(err, "delete subtasks")
		}
		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return translate(res.Error, "delete task")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete task: %w", ErrNotFound)
		}
		return nil
	})
}

// Subtasks

func (s *GormStore) CreateSubtask(ctx context.Context, subtask *models.Subtask) error {
	return translate(s.db.WithContext(ctx).Create(subtask).Error, "create subtask")
}

func (s *GormStore) FindSubtask(ctx context.Context, id uint) (*models.Subtask, error) {
	var subtask models.Subtask
	if err := s.db.WithContext(ctx).First(&subtask, id).Error; err != nil {
		return nil, translate(err, "find subtask")
	}
	return &subtask, nil
}

func (s *GormStore) ListSubtasksByTask(ctx context.Context, taskID uint) ([]models.Subtask, error) {
	subtasks := []models.Subtask{}
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id").Find(&subtasks).Error; err != nil {
		return nil, translate(err, "list subtasks")
	}
	return subtasks, nil
}

func (s *GormStore) DeleteSubtask(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Subtask{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete subtask")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete subtask: %w", ErrNotFound)
	}
	return nil
}
