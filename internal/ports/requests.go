package ports

import (
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
)

// Create requests carry the full draft; update requests use pointer
// fields so the wire payload patches only what the caller set.

type CreateFolderRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type UpdateFolderRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Icon  *string `json:"icon,omitempty"`
	Color *string `json:"color,omitempty"`
}

type CreateBoardRequest struct {
	Name string             `json:"name" validate:"required,max=100"`
	Type entities.BoardType `json:"type" validate:"required"`
}

type UpdateBoardRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=100"`
}

type CreateItemRequest struct {
	BoardID  uuid.UUID           `json:"board_id" validate:"required"`
	ParentID *uuid.UUID          `json:"parent_id,omitempty"`
	Title    string              `json:"title" validate:"required,max=255"`
	Content  string              `json:"content,omitempty"`
	Status   entities.ItemStatus `json:"status,omitempty"`
	DueDate  *time.Time          `json:"due_date,omitempty"`
	Metadata entities.Metadata   `json:"metadata,omitempty"`
}

type UpdateItemRequest struct {
	Title    *string              `json:"title,omitempty" validate:"omitempty,max=255"`
	Content  *string              `json:"content,omitempty"`
	Status   *entities.ItemStatus `json:"status,omitempty"`
	DueDate  *time.Time           `json:"due_date,omitempty"`
	Metadata entities.Metadata    `json:"metadata,omitempty"`
}

type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type CompleteItemRequest struct {
	Completed bool `json:"completed"`
}

type MoveItemRequest struct {
	BoardID uuid.UUID `json:"board_id" validate:"required"`
}

type ReminderRequest struct {
	At *time.Time `json:"at"`
}

type HabitCompleteRequest struct {
	Day  string `json:"day" validate:"required"`
	Done bool   `json:"done"`
}

type AuthRequest struct {
	InitData string `json:"init_data" validate:"required"`
}

// AuthResponse is what POST /auth/telegram returns
type AuthResponse struct {
	Token string         `json:"token"`
	User  *entities.User `json:"user"`
}
