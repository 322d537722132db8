package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"taskboard/models"
	"taskboard/repository"
)

type memberKey struct {
	boardID uint
	userID  uint
}

type fakeStore struct {
	nextID   uint
	users    map[uint]models.User
	boards   map[uint]models.Board
	members  map[memberKey]models.BoardMember
	tasks    map[uint]models.Task
	subtasks map[uint]models.Subtask

	createMembershipErr error
	lookups             int

	// txMu serializes units of work the way row locks do in the database.
	txMu sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uint]models.User{},
		boards:   map[uint]models.Board{},
		members:  map[memberKey]models.BoardMember{},
		tasks:    map[uint]models.Task{},
		subtasks: map[uint]models.Subtask{},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(email string) models.User {
	u := models.User{Email: email, IsActive: true}
	u.ID = f.id()
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addMember(boardID, userID uint, role models.Role) {
	f.members[memberKey{boardID, userID}] = models.BoardMember{ID: f.id(), BoardID: boardID, UserID: userID, Role: role}
}

func (f *fakeStore) Users() repository.UserRepository             { return f }
func (f *fakeStore) Boards() repository.BoardRepository           { return f }
func (f *fakeStore) Memberships() repository.MembershipRepository { return f }
func (f *fakeStore) Tasks() repository.TaskRepository             { return f }
func (f *fakeStore) Subtasks() repository.SubtaskRepository       { return f }

// Transaction restores a snapshot of every table when fn fails.
func (f *fakeStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	boards := cloneMap(f.boards)
	members := cloneMap(f.members)
	tasks := cloneMap(f.tasks)
	subtasks := cloneMap(f.subtasks)
	if err := fn(f); err != nil {
		f.boards, f.members, f.tasks, f.subtasks = boards, members, tasks, subtasks
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFoundErr(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
}

func (f *fakeStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, notFoundErr("find user")
	}
	return &u, nil
}

func (f *fakeStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	var folded []models.User
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
		if strings.EqualFold(u.Email, email) {
			folded = append(folded, u)
		}
	}
	if len(folded) != 1 {
		return nil, notFoundErr("find user by email")
	}
	return &folded[0], nil
}

func (f *fakeStore) CreateBoard(ctx context.Context, board *models.Board) error {
	board.ID = f.id()
	f.boards[board.ID] = *board
	return nil
}

func (f *fakeStore) FindBoard(ctx context.Context, id uint) (*models.Board, error) {
	b, ok := f.boards[id]
	if !ok {
		return nil, notFoundErr("find board")
	}
	return &b, nil
}

func (f *fakeStore) FindOwnedBoard(ctx context.Context, id, ownerID uint) (*models.Board, error) {
	b, ok := f.boards[id]
	if !ok || b.OwnerID != ownerID {
		return nil, notFoundErr("find owned board")
	}
	return &b, nil
}

func (f *fakeStore) ListBoardsForUser(ctx context.Context, userID uint) ([]models.BoardWithRole, error) {
	var out []models.BoardWithRole
	for key, m := range f.members {
		if key.userID != userID {
			continue
		}
		b := f.boards[key.boardID]
		out = append(out, models.BoardWithRole{ID: b.ID, Name: b.Name, Role: m.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindMembership(ctx context.Context, boardID, userID uint) (*models.BoardMember, error) {
	f.lookups++
	m, ok := f.members[memberKey{boardID, userID}]
	if !ok {
		return nil, notFoundErr("find membership")
	}
	return &m, nil
}

func (f *fakeStore) CreateMembership(ctx context.Context, member *models.BoardMember) error {
	if f.createMembershipErr != nil {
		return f.createMembershipErr
	}
	key := memberKey{member.BoardID, member.UserID}
	if _, exists := f.members[key]; exists {
		return fmt.Errorf("create membership: %w", repository.ErrDuplicate)
	}
	member.ID = f.id()
	f.members[key] = *member
	return nil
}

func (f *fakeStore) UpdateMemberRole(ctx context.Context, boardID, userID uint, role models.Role) error {
	key := memberKey{boardID, userID}
	m, ok := f.members[key]
	if !ok {
		return notFoundErr("update member role")
	}
	m.Role = role
	f.members[key] = m
	return nil
}

func (f *fakeStore) CountOwners(ctx context.Context, boardID uint) (int64, error) {
	var n int64
	for key, m := range f.members {
		if key.boardID == boardID && m.Role == models.RoleOwner {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.ID = f.id()
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeStore) FindTask(ctx context.Context, id uint) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, notFoundErr("find task")
	}
	return &t, nil
}

func (f *fakeStore) ListTasksByBoard(ctx context.Context, boardID uint) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id uint) error {
	if _, ok := f.tasks[id]; !ok {
		return notFoundErr("delete task")
	}
	for sid, s := range f.subtasks {
		if s.TaskID == id {
			delete(f.subtasks, sid)
		}
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) CreateSubtask(ctx context.Context, subtask *models.Subtask) error {
	subtask.ID = f.id()
	f.subtasks[subtask.ID] = *subtask
	return nil
}

func (f *fakeStore) FindSubtask(ctx context.Context, id uint) (*models.Subtask, error) {
	s, ok := f.subtasks[id]
	if !ok {
		return nil, notFoundErr("find subtask")
	}
	return &s, nil
}

func (f *fakeStore) ListSubtasksByTask(ctx context.Context, taskID uint) ([]models.Subtask, error) {
	var out []models.Subtask
	for _, s := range f.subtasks {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteSubtask(ctx context.Context, id uint) error {
	if _, ok := f.subtasks[id]; !ok {
		return notFoundErr("delete subtask")
	}
	delete(f.subtasks, id)
	return nil
}

type fixture struct {
	store    *fakeStore
	boards   *BoardService
	tasks    *TaskService
	subtasks *SubtaskService
}

func newFixture(policy Policy) *fixture {
	store := newFakeStore()
	auth := NewAuthorizer(store, policy)
	return &fixture{
		store:    store,
		boards:   NewBoardService(store, auth),
		tasks:    NewTaskService(store, auth),
		subtasks: NewSubtaskService(store, auth),
	}
}
