package models

import "time"

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Task is a unit of work on a board.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BoardID     uint      `gorm:"not null;index" json:"board_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"size:20;default:'todo'" json:"status"` // todo, in_progress, done
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Subtasks []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// Subtask is a unit of work under a task.
type Subtask struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
