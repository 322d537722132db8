package models

import "time"

// Board is a named workspace. Its creator becomes the first owner member.
type Board struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Owner   User          `gorm:"foreignKey:OwnerID" json:"-"`
	Members []BoardMember `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks   []Task        `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"-"`
}

// BoardMember grants a user a role on a board. At most one row exists per
// (board, user); the unique index enforces it in storage.
type BoardMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BoardID   uint      `gorm:"uniqueIndex:idx_board_user;not null" json:"board_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_board_user;not null;index" json:"user_id"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"-"`
}

// BoardWithRole is a board as seen by one of its members.
type BoardWithRole struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
