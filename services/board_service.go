package services

import (
	"context"
	"errors"
	"strings"

	"taskboard/models"
	"taskboard/repository"
)

// Invitation is the result of adding a user to a board.
type Invitation struct {
	BoardID   uint        `json:"board_id"`
	UserID    uint        `json:"user_id"`
	AddedUser string      `json:"added_user"`
	Role      models.Role `json:"role"`
}

// RoleChange is the result of changing a member's role.
type RoleChange struct {
	UserID  uint        `json:"user_id"`
	BoardID uint        `json:"board_id"`
	NewRole models.Role `json:"new_role"`
}

type BoardService struct {
	store repository.Store
	auth  *Authorizer
}

func NewBoardService(store repository.Store, auth *Authorizer) *BoardService {
	return &BoardService{store: store, auth: auth}
}

// CreateBoard creates the board and the caller's owner membership in one
// transaction, so a board never exists without an owner.
func (s *BoardService) CreateBoard(ctx context.Context, name string, callerID uint) (*models.BoardWithRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("Board name is required")
	}

	var board models.Board
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		board = models.Board{Name: name, OwnerID: callerID}
		if err := tx.Boards().CreateBoard(ctx, &board); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, &models.BoardMember{
			BoardID: board.ID,
			UserID:  callerID,
			Role:    models.RoleOwner,
		})
	})
	if err != nil {
		return nil, internal("Failed to create board", err)
	}

	return &models.BoardWithRole{ID: board.ID, Name: board.Name, Role: models.RoleOwner}, nil
}

// GetBoard returns the board only to its owner.
func (s *BoardService) GetBoard(ctx context.Context, boardID, callerID uint) (*models.Board, error) {
	board, err := s.store.Boards().FindOwnedBoard(ctx, boardID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Board not found")
		}
		return nil, internal("Failed to fetch board", err)
	}
	return board, nil
}

// ListBoards returns every board the caller is a member of, with the
// caller's role on it.
func (s *BoardService) ListBoards(ctx context.Context, callerID uint) ([]models.BoardWithRole, error) {
	boards, err := s.store.Boards().ListBoardsForUser(ctx, callerID)
	if err != nil {
		return nil, internal("Failed to fetch boards", err)
	}
	if boards == nil {
		boards = []models.BoardWithRole{}
	}
	return boards, nil
}

// InviteMember adds the user registered under email as a member.
func (s *BoardService) InviteMember(ctx context.Context, boardID uint, email string, callerID uint) (*Invitation, error) {
	if err := s.auth.RequireOwner(ctx, boardID, callerID, "invite members"); err != nil {
		return nil, err
	}

	invitee, err := s.store.Users().FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User with this email not found")
		}
		return nil, internal("Failed to look up user", err)
	}

	_, err = s.store.Memberships().FindMembership(ctx, boardID, invitee.ID)
	switch {
	case err == nil:
		return nil, conflict("User is already a member of this board")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internal("Failed to look up membership", err)
	}

	member := &models.BoardMember{BoardID: boardID, UserID: invitee.ID, Role: models.RoleMember}
	if err := s.store.Memberships().CreateMembership(ctx, member); err != nil {
		// lost a race against a concurrent invite of the same user
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("User is already a member of this board")
		}
		return nil, internal("Failed to add member", err)
	}

	return &Invitation{
		BoardID:   boardID,
		UserID:    invitee.ID,
		AddedUser: invitee.Email,
		Role:      member.Role,
	}, nil
}

// ChangeRole overwrites the target member's role. Only owners may do this,
// and the last owner of a board cannot be demoted. The owner rows stay
// locked from the count to the update, so concurrent demotions serialize.
func (s *BoardService) ChangeRole(ctx context.Context, boardID, targetUserID uint, newRole string, callerID uint) (*RoleChange, error) {
	role, err := models.ParseRole(newRole)
	if err != nil {
		return nil, invalidInput("Invalid role")
	}

	if _, err := s.store.Boards().FindBoard(ctx, boardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Board not found")
		}
		return nil, internal("Failed to fetch board", err)
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		owners, err := tx.Memberships().CountOwners(ctx, boardID)
		if err != nil {
			return internal("Failed to count owners", err)
		}

		if err := s.auth.within(tx.Memberships()).RequireOwner(ctx, boardID, callerID, "change roles"); err != nil {
			return err
		}

		target, err := tx.Memberships().FindMembership(ctx, boardID, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("User is not a member of this board")
			}
			return internal("Failed to look up membership", err)
		}

		if target.Role == models.RoleOwner && role != models.RoleOwner && owners <= 1 {
			return conflict("Board must keep at least one owner")
		}

		if err := tx.Memberships().UpdateMemberRole(ctx, boardID, targetUserID, role); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("User is not a member of this board")
			}
			return internal("Failed to update role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RoleChange{UserID: targetUserID, BoardID: boardID, NewRole: role}, nil
}
