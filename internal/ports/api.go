package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
)

// AuthAPI is the authentication surface of the backend
type AuthAPI interface {
	// Authenticate exchanges Telegram initData for a session; the
	// implementation persists the returned token.
	Authenticate(ctx context.Context, initData string) (*entities.User, error)
	// Me fetches the current user using the held token.
	Me(ctx context.Context) (*entities.User, error)
	UpdateSettings(ctx context.Context, settings entities.Settings) (*entities.User, error)
}

// FolderAPI maps the /folders resource
type FolderAPI interface {
	ListFolders(ctx context.Context) ([]entities.Folder, error)
	GetFolder(ctx context.Context, id uuid.UUID) (*entities.Folder, error)
	CreateFolder(ctx context.Context, req CreateFolderRequest) (*entities.Folder, error)
	UpdateFolder(ctx context.Context, id uuid.UUID, req UpdateFolderRequest) (*entities.Folder, error)
	DeleteFolder(ctx context.Context, id uuid.UUID) error
	ReorderFolders(ctx context.Context, ids []uuid.UUID) error
}

// BoardAPI maps the boards resource nested under folders
type BoardAPI interface {
	ListBoards(ctx context.Context, folderID uuid.UUID) ([]entities.Board, error)
	CreateBoard(ctx context.Context, folderID uuid.UUID, req CreateBoardRequest) (*entities.Board, error)
	UpdateBoard(ctx context.Context, id uuid.UUID, req UpdateBoardRequest) (*entities.Board, error)
	DeleteBoard(ctx context.Context, id uuid.UUID) error
}

// ItemAPI maps the generic /items resource and its sub-actions
type ItemAPI interface {
	ListItems(ctx context.Context, boardID uuid.UUID) ([]entities.Item, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*entities.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*entities.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	CompleteItem(ctx context.Context, id uuid.UUID, completed bool) (*entities.Item, error)
	MoveItem(ctx context.Context, id uuid.UUID, boardID uuid.UUID) (*entities.Item, error)
	SetReminder(ctx context.Context, id uuid.UUID, at *time.Time) (*entities.Item, error)
	ReorderItems(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error

	CompleteHabit(ctx context.Context, id uuid.UUID, day string, done bool) error
	ListHabitCompletions(ctx context.Context, id uuid.UUID) ([]entities.HabitCompletion, error)
}

// AnalyticsAPI maps the read-only stats surface
type AnalyticsAPI interface {
	Overview(ctx context.Context) (*entities.AnalyticsOverview, error)
	Completion(ctx context.Context, days int) ([]entities.CompletionPoint, error)
}
