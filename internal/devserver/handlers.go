package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boardflow/core/internal/devserver/storage"
	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// Handlers serves the REST resource surface against the repositories
type Handlers struct {
	auth      *AuthService
	users     *storage.UserRepository
	folders   *storage.FolderRepository
	boards    *storage.BoardRepository
	items     *storage.ItemRepository
	analytics *storage.AnalyticsRepository
	logger    *logger.Logger
}

// NewHandlers creates the handler set
func NewHandlers(auth *AuthService, db *storage.DB, log *logger.Logger) *Handlers {
	return &Handlers{
		auth:      auth,
		users:     storage.NewUserRepository(db),
		folders:   storage.NewFolderRepository(db),
		boards:    storage.NewBoardRepository(db),
		items:     storage.NewItemRepository(db),
		analytics: storage.NewAnalyticsRepository(db),
		logger:    log.WithComponent("handlers"),
	}
}

// httpError maps domain errors onto status codes
func httpError(err error) error {
	switch {
	case errors.Is(err, entities.ErrFolderNotFound),
		errors.Is(err, entities.ErrBoardNotFound),
		errors.Is(err, entities.ErrItemNotFound),
		errors.Is(err, entities.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		return err
	}
}

func userIDFromContext(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}

// Auth handlers

func (h *Handlers) AuthTelegram(c echo.Context) error {
	var req ports.AuthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.auth.ValidateInitData(req.InitData)
	if err != nil {
		h.logger.Warnw("Rejected credential exchange", "error", err.Error(), "ip", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid init data")
	}

	if err := h.users.Upsert(c.Request().Context(), user); err != nil {
		return err
	}
	// Re-read so persisted settings survive the exchange.
	stored, err := h.users.GetByID(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	token, err := h.auth.IssueToken(stored)
	if err != nil {
		return err
	}

	h.logger.Infow("Session issued", "user_id", stored.ID)
	return c.JSON(http.StatusOK, ports.AuthResponse{Token: token, User: stored})
}

func (h *Handlers) Me(c echo.Context) error {
	user, err := h.users.GetByID(c.Request().Context(), userIDFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handlers) UpdateSettings(c echo.Context) error {
	var settings entities.Settings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if err := h.users.UpdateSettings(c.Request().Context(), userID, settings); err != nil {
		return httpError(err)
	}

	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Folder handlers

func (h *Handlers) ListFolders(c echo.Context) error {
	folders, err := h.folders.ListByUser(c.Request().Context(), userIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, folders)
}

func (h *Handlers) GetFolder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid folder id")
	}

	folder, err := h.folders.Get(c.Request().Context(), userIDFromContext(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, folder)
}

func (h *Handlers) CreateFolder(c echo.Context) error {
	var req ports.CreateFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	folder := &entities.Folder{Name: req.Name, Icon: req.Icon, Color: req.Color}
	if err := h.folders.Create(c.Request().Context(), userIDFromContext(c), folder); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, folder)
}

func (h *Handlers) UpdateFolder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid folder id")
	}

	var req ports.UpdateFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := userIDFromContext(c)
	folder, err := h.folders.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}

	if req.Name != nil {
		folder.Name = *req.Name
	}
	if req.Icon != nil {
		folder.Icon = *req.Icon
	}
	if req.Color != nil {
		folder.Color = *req.Color
	}

	if err := h.folders.Update(c.Request().Context(), userID, folder); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, folder)
}

func (h *Handlers) DeleteFolder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid folder id")
	}

	if err := h.folders.Delete(c.Request().Context(), userIDFromContext(c), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) ReorderFolders(c echo.Context) error {
	var req ports.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.folders.Reorder(c.Request().Context(), userIDFromContext(c), req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Board handlers

func (h *Handlers) ListBoards(c echo.Context) error {
	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid folder id")
	}

	boards, err := h.boards.ListByFolder(c.Request().Context(), userIDFromContext(c), folderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, boards)
}

func (h *Handlers) CreateBoard(c echo.Context) error {
	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid folder id")
	}

	var req ports.CreateBoardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.Type.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board type")
	}

	board := &entities.Board{FolderID: folderID, Name: req.Name, Type: req.Type}
	if err := h.boards.Create(c.Request().Context(), userIDFromContext(c), board); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, board)
}

func (h *Handlers) UpdateBoard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}

	var req ports.UpdateBoardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := userIDFromContext(c)
	board, err := h.boards.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}
	if req.Name != nil {
		board.Name = *req.Name
	}

	if err := h.boards.Update(c.Request().Context(), userID, board); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, board)
}

func (h *Handlers) DeleteBoard(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}

	if err := h.boards.Delete(c.Request().Context(), userIDFromContext(c), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Item handlers

func (h *Handlers) ListItems(c echo.Context) error {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}

	items, err := h.items.ListByBoard(c.Request().Context(), userIDFromContext(c), boardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handlers) CreateItem(c echo.Context) error {
	var req ports.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Status != "" && !req.Status.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	item := &entities.Item{
		BoardID:  req.BoardID,
		ParentID: req.ParentID,
		Title:    req.Title,
		Content:  req.Content,
		Status:   req.Status,
		DueDate:  req.DueDate,
		Metadata: req.Metadata,
	}
	if err := h.items.Create(c.Request().Context(), userIDFromContext(c), item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handlers) UpdateItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req ports.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := userIDFromContext(c)
	item, err := h.items.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Content != nil {
		item.Content = *req.Content
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		item.Status = *req.Status
	}
	if req.DueDate != nil {
		item.DueDate = req.DueDate
	}
	if req.Metadata != nil {
		item.Metadata = req.Metadata
	}

	if err := h.items.Update(c.Request().Context(), userID, item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handlers) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	if err := h.items.Delete(c.Request().Context(), userIDFromContext(c), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) CompleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req ports.CompleteItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	item, err := h.items.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}

	item.Complete(req.Completed, time.Now().UTC())
	if err := h.items.Update(c.Request().Context(), userID, item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handlers) MoveItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req ports.MoveItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := userIDFromContext(c)
	item, err := h.items.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}
	// The target board must belong to the same user.
	if _, err := h.boards.Get(c.Request().Context(), userID, req.BoardID); err != nil {
		return httpError(err)
	}

	item.BoardID = req.BoardID
	if err := h.items.Update(c.Request().Context(), userID, item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handlers) SetReminder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req ports.ReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	item, err := h.items.Get(c.Request().Context(), userID, id)
	if err != nil {
		return httpError(err)
	}

	if req.At != nil {
		item.Event().SetReminder(*req.At)
	} else if item.Metadata != nil {
		delete(item.Metadata, "reminder")
	}

	if err := h.items.Update(c.Request().Context(), userID, item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handlers) ReorderItems(c echo.Context) error {
	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid board id")
	}

	var req ports.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.items.Reorder(c.Request().Context(), userIDFromContext(c), boardID, req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) CompleteHabit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req ports.HabitCompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", req.Day); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid day format")
	}

	if err := h.items.SetHabitDay(c.Request().Context(), userIDFromContext(c), id, req.Day, req.Done); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) ListHabitCompletions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	completions, err := h.items.ListHabitDays(c.Request().Context(), userIDFromContext(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, completions)
}

// Analytics handlers

func (h *Handlers) AnalyticsOverview(c echo.Context) error {
	overview, err := h.analytics.Overview(c.Request().Context(), userIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, overview)
}

func (h *Handlers) AnalyticsCompletion(c echo.Context) error {
	days := 30
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be between 1 and 365")
		}
		days = parsed
	}

	points, err := h.analytics.Completion(c.Request().Context(), userIDFromContext(c), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}
