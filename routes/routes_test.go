package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"taskboard/config"
	"taskboard/middleware"
	"taskboard/models"
	"taskboard/repository"
	"taskboard/services"
	"taskboard/utils"
)

type testServer struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, policy services.Policy) *testServer {
	t.Helper()
	config.AppConfig.JWTSecret = "routes-test-secret"
	config.AppConfig.RateLimitMembership = 100

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	app := NewApp()
	SetupRoutes(app, repository.NewGormStore(db), Options{
		Policy: policy,
		CORS:   middleware.DefaultCORSConfig([]string{"http://localhost:3000"}),
	})
	return &testServer{t: t, app: app, db: db}
}

func (s *testServer) user(email string) (models.User, string) {
	s.t.Helper()
	u := models.User{Email: email, IsActive: true}
	if err := s.db.Create(&u).Error; err != nil {
		s.t.Fatalf("seed user: %v", err)
	}
	token, err := utils.GenerateJWTToken(&u, time.Hour)
	if err != nil {
		s.t.Fatalf("token: %v", err)
	}
	return u, token
}

func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func expectStatus(t *testing.T, what string, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: expected status %d, got %d", what, want, got)
	}
}

func TestSprintScenarioOverHTTP(t *testing.T) {
	s := newTestServer(t, services.DefaultPolicy())
	a, tokenA := s.user("a@example.com")
	b, tokenB := s.user("b@example.com")

	var board models.BoardWithRole
	expectStatus(t, "create board", s.do(http.MethodPost, "/boards/", tokenA, fiber.Map{"name": "Sprint"}, &board), http.StatusCreated)
	if board.Role != models.RoleOwner || board.Name != "Sprint" {
		t.Fatalf("unexpected board: %+v", board)
	}

	var invite map[string]interface{}
	expectStatus(t, "invite", s.do(http.MethodPost, "/boards/invite-member", tokenA, fiber.Map{"board_id": board.ID, "email": b.Email}, &invite), http.StatusOK)
	if invite["added_user"] != b.Email {
		t.Fatalf("unexpected invite response: %v", invite)
	}
	expectStatus(t, "duplicate invite", s.do(http.MethodPost, "/boards/invite-member", tokenA, fiber.Map{"board_id": board.ID, "email": b.Email}, nil), http.StatusConflict)

	var task models.Task
	expectStatus(t, "member creates task", s.do(http.MethodPost, "/tasks/", tokenB, fiber.Map{"board_id": board.ID, "title": "Plan"}, &task), http.StatusCreated)

	expectStatus(t, "member changes owner role", s.do(http.MethodPut, "/boards/role", tokenB, fiber.Map{"board_id": board.ID, "user_id": a.ID, "new_role": "Viewer"}, nil), http.StatusForbidden)

	var change map[string]interface{}
	expectStatus(t, "owner demotes member", s.do(http.MethodPut, "/boards/role", tokenA, fiber.Map{"board_id": board.ID, "user_id": b.ID, "new_role": "Viewer"}, &change), http.StatusOK)
	if change["message"] != "Updated Role" || change["new_role"] != "viewer" {
		t.Fatalf("unexpected role change response: %v", change)
	}

	var failure map[string]interface{}
	expectStatus(t, "viewer creates subtask", s.do(http.MethodPost, "/subtasks/", tokenB, fiber.Map{"task_id": task.ID, "title": "Estimate"}, &failure), http.StatusForbidden)
	if failure["error"] != "viewer cannot modify subtasks" || failure["success"] != false {
		t.Fatalf("unexpected error body: %v", failure)
	}

	var boards []models.BoardWithRole
	expectStatus(t, "list boards", s.do(http.MethodGet, "/boards/all", tokenB, nil, &boards), http.StatusOK)
	if len(boards) != 1 || boards[0].Role != models.RoleViewer {
		t.Fatalf("unexpected boards for b: %+v", boards)
	}
}

func TestBoardEndpoints(t *testing.T) {
	s := newTestServer(t, services.DefaultPolicy())
	_, tokenA := s.user("a@example.com")
	b, tokenB := s.user("b@example.com")

	var board models.BoardWithRole
	s.do(http.MethodPost, "/boards/", tokenA, fiber.Map{"name": "Sprint"}, &board)
	s.do(http.MethodPost, "/boards/invite-member", tokenA, fiber.Map{"board_id": board.ID, "email": b.Email}, nil)

	var got map[string]interface{}
	expectStatus(t, "owner get", s.do(http.MethodGet, fmt.Sprintf("/boards/one/%d", board.ID), tokenA, nil, &got), http.StatusOK)
	if got["name"] != "Sprint" {
		t.Fatalf("unexpected board: %v", got)
	}
	expectStatus(t, "member get", s.do(http.MethodGet, fmt.Sprintf("/boards/one/%d", board.ID), tokenB, nil, nil), http.StatusNotFound)
	expectStatus(t, "bad id", s.do(http.MethodGet, "/boards/one/abc", tokenA, nil, nil), http.StatusBadRequest)

	expectStatus(t, "missing name", s.do(http.MethodPost, "/boards/", tokenA, fiber.Map{}, nil), http.StatusBadRequest)
	expectStatus(t, "invalid role", s.do(http.MethodPut, "/boards/role", tokenA, fiber.Map{"board_id": board.ID, "user_id": b.ID, "new_role": "admin"}, nil), http.StatusBadRequest)
	expectStatus(t, "unknown board", s.do(http.MethodPut, "/boards/role", tokenA, fiber.Map{"board_id": 999, "user_id": b.ID, "new_role": "Viewer"}, nil), http.StatusNotFound)
	expectStatus(t, "unknown email", s.do(http.MethodPost, "/boards/invite-member", tokenA, fiber.Map{"board_id": board.ID, "email": "ghost@example.com"}, nil), http.StatusNotFound)
	expectStatus(t, "member invites", s.do(http.MethodPost, "/boards/invite-member", tokenB, fiber.Map{"board_id": board.ID, "email": "a@example.com"}, nil), http.StatusForbidden)

	var count int64
	s.db.Model(&models.BoardMember{}).Where("board_id = ? AND user_id = ?", board.ID, b.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one membership for b, got %d", count)
	}
}

func TestTaskAndSubtaskEndpoints(t *testing.T) {
	s := newTestServer(t, services.DefaultPolicy())
	_, tokenA := s.user("a@example.com")
	_, tokenM := s.user("mallory@example.com")

	var board models.BoardWithRole
	s.do(http.MethodPost, "/boards/", tokenA, fiber.Map{"name": "Sprint"}, &board)

	var task models.Task
	expectStatus(t, "create task", s.do(http.MethodPost, "/tasks/", tokenA, fiber.Map{"board_id": board.ID, "title": "Ship", "status": "in_progress"}, &task), http.StatusCreated)
	if task.Status != models.TaskStatusInProgress {
		t.Fatalf("unexpected task: %+v", task)
	}
	expectStatus(t, "bad status", s.do(http.MethodPost, "/tasks/", tokenA, fiber.Map{"board_id": board.ID, "title": "x", "status": "blocked"}, nil), http.StatusBadRequest)
	expectStatus(t, "stranger creates task", s.do(http.MethodPost, "/tasks/", tokenM, fiber.Map{"board_id": board.ID, "title": "x"}, nil), http.StatusForbidden)

	var tasks []models.Task
	expectStatus(t, "list tasks", s.do(http.MethodGet, fmt.Sprintf("/tasks/%d", board.ID), tokenA, nil, &tasks), http.StatusOK)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	expectStatus(t, "stranger lists tasks", s.do(http.MethodGet, fmt.Sprintf("/tasks/%d", board.ID), tokenM, nil, nil), http.StatusForbidden)

	var sub models.Subtask
	expectStatus(t, "create subtask", s.do(http.MethodPost, "/subtasks/", tokenA, fiber.Map{"task_id": task.ID, "title": "Tag"}, &sub), http.StatusCreated)

	var subs []models.Subtask
	expectStatus(t, "list subtasks", s.do(http.MethodGet, fmt.Sprintf("/subtasks/%d?board_id=%d", task.ID, board.ID), tokenA, nil, &subs), http.StatusOK)
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Fatalf("unexpected subtasks: %+v", subs)
	}
	expectStatus(t, "list subtasks without board", s.do(http.MethodGet, fmt.Sprintf("/subtasks/%d", task.ID), tokenA, nil, nil), http.StatusBadRequest)

	var deleted map[string]interface{}
	expectStatus(t, "delete task", s.do(http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), tokenA, nil, &deleted), http.StatusOK)
	if deleted["task_id"] != float64(task.ID) {
		t.Fatalf("unexpected delete response: %v", deleted)
	}

	expectStatus(t, "delete subtask of deleted task", s.do(http.MethodDelete, fmt.Sprintf("/subtasks/%d", sub.ID), tokenA, nil, nil), http.StatusNotFound)
	expectStatus(t, "delete task twice", s.do(http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), tokenA, nil, nil), http.StatusNotFound)
}

func TestAuthAndMisc(t *testing.T) {
	s := newTestServer(t, services.DefaultPolicy())
	a, tokenA := s.user("a@example.com")

	expectStatus(t, "health", s.do(http.MethodGet, "/health", "", nil, nil), http.StatusOK)
	expectStatus(t, "no token", s.do(http.MethodGet, "/boards/all", "", nil, nil), http.StatusUnauthorized)
	expectStatus(t, "bad token", s.do(http.MethodGet, "/boards/all", "garbage", nil, nil), http.StatusUnauthorized)

	var me models.User
	expectStatus(t, "me", s.do(http.MethodGet, "/auth/me", tokenA, nil, &me), http.StatusOK)
	if me.ID != a.ID || me.Email != a.Email {
		t.Fatalf("unexpected me: %+v", me)
	}

	var boards []models.BoardWithRole
	expectStatus(t, "empty list", s.do(http.MethodGet, "/boards/all", tokenA, nil, &boards), http.StatusOK)
	if boards == nil || len(boards) != 0 {
		t.Fatalf("expected empty array, got %#v", boards)
	}

	expectStatus(t, "unknown route", s.do(http.MethodGet, "/nope", tokenA, nil, nil), http.StatusNotFound)
}

func TestLegacyViewerTaskPolicy(t *testing.T) {
	s := newTestServer(t, services.Policy{RestrictViewerTaskWrites: false})
	_, tokenA := s.user("a@example.com")
	v, tokenV := s.user("v@example.com")

	var board models.BoardWithRole
	s.do(http.MethodPost, "/boards/", tokenA, fiber.Map{"name": "Sprint"}, &board)
	s.do(http.MethodPost, "/boards/invite-member", tokenA, fiber.Map{"board_id": board.ID, "email": v.Email}, nil)
	s.do(http.MethodPut, "/boards/role", tokenA, fiber.Map{"board_id": board.ID, "user_id": v.ID, "new_role": "viewer"}, nil)

	var task models.Task
	expectStatus(t, "viewer creates task", s.do(http.MethodPost, "/tasks/", tokenV, fiber.Map{"board_id": board.ID, "title": "x"}, &task), http.StatusCreated)
	expectStatus(t, "viewer creates subtask", s.do(http.MethodPost, "/subtasks/", tokenV, fiber.Map{"task_id": task.ID, "title": "y"}, nil), http.StatusForbidden)
	expectStatus(t, "viewer deletes task", s.do(http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), tokenV, nil, nil), http.StatusOK)
}
