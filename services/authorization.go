package services

import (
	"context"
	"errors"

	"taskboard/models"
	"taskboard/repository"
)

// Policy holds the role rules that are configurable per deployment.
type Policy struct {
	// RestrictViewerTaskWrites rejects viewers on task create and delete,
	// matching the rule that always applies to subtasks. Turning it off
	// lets any board member, viewers included, write tasks.
	RestrictViewerTaskWrites bool
}

func DefaultPolicy() Policy {
	return Policy{RestrictViewerTaskWrites: true}
}

// Authorizer answers membership questions against the membership store.
// Nothing is cached: each call reads the current row.
type Authorizer struct {
	memberships repository.MembershipRepository
	policy      Policy
}

func NewAuthorizer(memberships repository.MembershipRepository, policy Policy) *Authorizer {
	return &Authorizer{memberships: memberships, policy: policy}
}

func (a *Authorizer) Policy() Policy {
	return a.policy
}

// within returns an Authorizer that reads memberships through repo, used
// to check roles inside a transaction.
func (a *Authorizer) within(memberships repository.MembershipRepository) *Authorizer {
	return &Authorizer{memberships: memberships, policy: a.policy}
}

// LookupMembership returns the caller's role on the board, or a NotFound
// error when the user has no membership.
func (a *Authorizer) LookupMembership(ctx context.Context, boardID, userID uint) (models.Role, error) {
	member, err := a.memberships.FindMembership(ctx, boardID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", notFound("Membership not found")
		}
		return "", internal("Failed to look up membership", err)
	}
	return member.Role, nil
}

// RequireMembership fails with Forbidden unless the user is a member.
func (a *Authorizer) RequireMembership(ctx context.Context, boardID, userID uint) (models.Role, error) {
	role, err := a.LookupMembership(ctx, boardID, userID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return "", forbidden("You are not a member of this board")
		}
		return "", err
	}
	return role, nil
}

// RequireOwner gates invitations and role changes.
func (a *Authorizer) RequireOwner(ctx context.Context, boardID, userID uint, action string) error {
	role, err := a.LookupMembership(ctx, boardID, userID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return forbidden("Only owner can " + action)
		}
		return err
	}
	if role != models.RoleOwner {
		return forbidden("Only owner can " + action)
	}
	return nil
}

// RequireWriter gates creation and deletion of board content. resource is
// used in the error message, e.g. "subtasks".
func (a *Authorizer) RequireWriter(ctx context.Context, boardID, userID uint, resource string) (models.Role, error) {
	role, err := a.RequireMembership(ctx, boardID, userID)
	if err != nil {
		return "", err
	}
	if !role.CanWrite() {
		return "", forbidden("viewer cannot modify " + resource)
	}
	return role, nil
}

// requireTaskWriter applies the task rule selected by the policy.
func (a *Authorizer) requireTaskWriter(ctx context.Context, boardID, userID uint) (models.Role, error) {
	if a.policy.RestrictViewerTaskWrites {
		return a.RequireWriter(ctx, boardID, userID, "tasks")
	}
	return a.RequireMembership(ctx, boardID, userID)
}
