package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/boardflow/core/internal/domain/entities"
)

// Row types bridge the SQL schema and the domain entities; metadata
// and settings travel as JSON text columns.

type itemRow struct {
	ID          uuid.UUID           `db:"id"`
	BoardID     uuid.UUID           `db:"board_id"`
	ParentID    *uuid.UUID          `db:"parent_id"`
	Title       string              `db:"title"`
	Content     string              `db:"content"`
	Status      entities.ItemStatus `db:"status"`
	Position    int                 `db:"position"`
	DueDate     *time.Time          `db:"due_date"`
	CompletedAt *time.Time          `db:"completed_at"`
	Metadata    []byte              `db:"metadata"`
	CreatedAt   time.Time           `db:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at"`
}

func (r itemRow) toEntity() (entities.Item, error) {
	item := entities.Item{
		ID:          r.ID,
		BoardID:     r.BoardID,
		ParentID:    r.ParentID,
		Title:       r.Title,
		Content:     r.Content,
		Status:      r.Status,
		Position:    r.Position,
		DueDate:     r.DueDate,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &item.Metadata); err != nil {
			return item, fmt.Errorf("decode item metadata: %w", err)
		}
	}
	return item, nil
}

func metadataJSON(m entities.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

type userRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	LanguageCode string    `db:"language_code"`
	Settings     []byte    `db:"settings"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toEntity() (entities.User, error) {
	user := entities.User{
		ID:          r.ID,
		Username:    r.Username,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		LanguageTag: r.LanguageCode,
		CreatedAt:   r.CreatedAt,
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &user.Settings); err != nil {
			return user, fmt.Errorf("decode user settings: %w", err)
		}
	}
	return user, nil
}

// UserRepository persists Telegram-backed identities
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user on first launch and refreshes the profile
// fields on every later one. Settings are kept as-is on conflict.
func (r *UserRepository) Upsert(ctx context.Context, user *entities.User) error {
	query := r.db.DB.Rebind(`
		INSERT INTO users (id, username, first_name, last_name, language_code, settings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			language_code = excluded.language_code`)

	settings, err := json.Marshal(user.Settings)
	if err != nil {
		return fmt.Errorf("encode user settings: %w", err)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.DB.ExecContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName,
		user.LanguageTag, settings, user.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	query := r.db.DB.Rebind(`
		SELECT id, username, first_name, last_name, language_code, settings, created_at
		FROM users WHERE id = ?`)

	var row userRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	user, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateSettings(ctx context.Context, id int64, settings entities.Settings) error {
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode user settings: %w", err)
	}

	query := r.db.DB.Rebind(`UPDATE users SET settings = ? WHERE id = ?`)
	res, err := r.db.DB.ExecContext(ctx, query, b, id)
	if err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

// FolderRepository persists the folder tree. Every method scopes by
// owner; a folder of another user reads as not found.
type FolderRepository struct {
	db *DB
}

func NewFolderRepository(db *DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) ListByUser(ctx context.Context, userID int64) ([]entities.Folder, error) {
	query := r.db.DB.Rebind(`
		SELECT id, name, icon, color, position, created_at, updated_at
		FROM folders WHERE user_id = ?
		ORDER BY position, id`)

	folders := []entities.Folder{}
	if err := r.db.DB.SelectContext(ctx, &folders, query, userID); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

func (r *FolderRepository) Get(ctx context.Context, userID int64, id uuid.UUID) (*entities.Folder, error) {
	query := r.db.DB.Rebind(`
		SELECT id, name, icon, color, position, created_at, updated_at
		FROM folders WHERE id = ? AND user_id = ?`)

	var folder entities.Folder
	if err := r.db.DB.GetContext(ctx, &folder, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrFolderNotFound
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &folder, nil
}

func (r *FolderRepository) Create(ctx context.Context, userID int64, folder *entities.Folder) error {
	if folder.ID == uuid.Nil {
		folder.ID = uuid.New()
	}
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	// New folders land at the tail of the user's list.
	posQuery := r.db.DB.Rebind(`SELECT COALESCE(MAX(position) + 1, 0) FROM folders WHERE user_id = ?`)
	if err := r.db.DB.GetContext(ctx, &folder.Position, posQuery, userID); err != nil {
		return fmt.Errorf("next folder position: %w", err)
	}

	query := r.db.DB.Rebind(`
		INSERT INTO folders (id, user_id, name, icon, color, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.DB.ExecContext(ctx, query,
		folder.ID, userID, folder.Name, folder.Icon, folder.Color,
		folder.Position, folder.CreatedAt, folder.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) Update(ctx context.Context, userID int64, folder *entities.Folder) error {
	folder.UpdatedAt = time.Now().UTC()

	query := r.db.DB.Rebind(`
		UPDATE folders SET name = ?, icon = ?, color = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`)
	res, err := r.db.DB.ExecContext(ctx, query,
		folder.Name, folder.Icon, folder.Color, folder.UpdatedAt, folder.ID, userID)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrFolderNotFound
	}
	return nil
}

// Delete removes the folder; boards and items cascade in the schema
func (r *FolderRepository) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	query := r.db.DB.Rebind(`DELETE FROM folders WHERE id = ? AND user_id = ?`)
	res, err := r.db.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrFolderNotFound
	}
	return nil
}

// Reorder rewrites the positions to match the given order in one
// transaction; ids of other users are ignored.
func (r *FolderRepository) Reorder(ctx context.Context, userID int64, ids []uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`UPDATE folders SET position = ? WHERE id = ? AND user_id = ?`)
		for pos, id := range ids {
			if _, err := tx.ExecContext(ctx, query, pos, id, userID); err != nil {
				return fmt.Errorf("reorder folder %s: %w", id, err)
			}
		}
		return nil
	})
}

// BoardRepository persists boards nested under folders
type BoardRepository struct {
	db *DB
}

func NewBoardRepository(db *DB) *BoardRepository {
	return &BoardRepository{db: db}
}

func (r *BoardRepository) ListByFolder(ctx context.Context, userID int64, folderID uuid.UUID) ([]entities.Board, error) {
	query := r.db.DB.Rebind(`
		SELECT b.id, b.folder_id, b.name, b.type, b.position, b.created_at, b.updated_at
		FROM boards b
		JOIN folders f ON f.id = b.folder_id
		WHERE b.folder_id = ? AND f.user_id = ?
		ORDER BY b.position, b.id`)

	boards := []entities.Board{}
	if err := r.db.DB.SelectContext(ctx, &boards, query, folderID, userID); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (r *BoardRepository) Get(ctx context.Context, userID int64, id uuid.UUID) (*entities.Board, error) {
	query := r.db.DB.Rebind(`
		SELECT b.id, b.folder_id, b.name, b.type, b.position, b.created_at, b.updated_at
		FROM boards b
		JOIN folders f ON f.id = b.folder_id
		WHERE b.id = ? AND f.user_id = ?`)

	var board entities.Board
	if err := r.db.DB.GetContext(ctx, &board, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrBoardNotFound
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

func (r *BoardRepository) Create(ctx context.Context, userID int64, board *entities.Board) error {
	// The folder join doubles as the ownership check.
	ownQuery := r.db.DB.Rebind(`SELECT COUNT(*) FROM folders WHERE id = ? AND user_id = ?`)
	var owned int
	if err := r.db.DB.GetContext(ctx, &owned, ownQuery, board.FolderID, userID); err != nil {
		return fmt.Errorf("check folder ownership: %w", err)
	}
	if owned == 0 {
		return entities.ErrFolderNotFound
	}

	if board.ID == uuid.Nil {
		board.ID = uuid.New()
	}
	now := time.Now().UTC()
	board.CreatedAt = now
	board.UpdatedAt = now

	posQuery := r.db.DB.Rebind(`SELECT COALESCE(MAX(position) + 1, 0) FROM boards WHERE folder_id = ?`)
	if err := r.db.DB.GetContext(ctx, &board.Position, posQuery, board.FolderID); err != nil {
		return fmt.Errorf("next board position: %w", err)
	}

	query := r.db.DB.Rebind(`
		INSERT INTO boards (id, folder_id, name, type, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.DB.ExecContext(ctx, query,
		board.ID, board.FolderID, board.Name, board.Type,
		board.Position, board.CreatedAt, board.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (r *BoardRepository) Update(ctx context.Context, userID int64, board *entities.Board) error {
	board.UpdatedAt = time.Now().UTC()

	query := r.db.DB.Rebind(`
		UPDATE boards SET name = ?, updated_at = ?
		WHERE id = ? AND folder_id IN (SELECT id FROM folders WHERE user_id = ?)`)
	res, err := r.db.DB.ExecContext(ctx, query, board.Name, board.UpdatedAt, board.ID, userID)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrBoardNotFound
	}
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	query := r.db.DB.Rebind(`
		DELETE FROM boards
		WHERE id = ? AND folder_id IN (SELECT id FROM folders WHERE user_id = ?)`)
	res, err := r.db.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrBoardNotFound
	}
	return nil
}

// ItemRepository persists the polymorphic item records
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `i.id, i.board_id, i.parent_id, i.title, i.content, i.status,
	i.position, i.due_date, i.completed_at, i.metadata, i.created_at, i.updated_at`

const itemOwnerJoin = `
	JOIN boards b ON b.id = i.board_id
	JOIN folders f ON f.id = b.folder_id`

func (r *ItemRepository) ListByBoard(ctx context.Context, userID int64, boardID uuid.UUID) ([]entities.Item, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + itemColumns + `
		FROM items i` + itemOwnerJoin + `
		WHERE i.board_id = ? AND f.user_id = ?
		ORDER BY i.position, i.id`)

	var rows []itemRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, boardID, userID); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]entities.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *ItemRepository) Get(ctx context.Context, userID int64, id uuid.UUID) (*entities.Item, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + itemColumns + `
		FROM items i` + itemOwnerJoin + `
		WHERE i.id = ? AND f.user_id = ?`)

	var row itemRow
	if err := r.db.DB.GetContext(ctx, &row, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	item, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, userID int64, item *entities.Item) error {
	ownQuery := r.db.DB.Rebind(`
		SELECT COUNT(*) FROM boards b JOIN folders f ON f.id = b.folder_id
		WHERE b.id = ? AND f.user_id = ?`)
	var owned int
	if err := r.db.DB.GetContext(ctx, &owned, ownQuery, item.BoardID, userID); err != nil {
		return fmt.Errorf("check board ownership: %w", err)
	}
	if owned == 0 {
		return entities.ErrBoardNotFound
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = entities.ItemStatusPending
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	posQuery := r.db.DB.Rebind(`SELECT COALESCE(MAX(position) + 1, 0) FROM items WHERE board_id = ?`)
	if err := r.db.DB.GetContext(ctx, &item.Position, posQuery, item.BoardID); err != nil {
		return fmt.Errorf("next item position: %w", err)
	}

	meta, err := metadataJSON(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode item metadata: %w", err)
	}

	query := r.db.DB.Rebind(`
		INSERT INTO items (id, board_id, parent_id, title, content, status, position,
			due_date, completed_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.DB.ExecContext(ctx, query,
		item.ID, item.BoardID, item.ParentID, item.Title, item.Content,
		item.Status, item.Position, item.DueDate, item.CompletedAt,
		meta, item.CreatedAt, item.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *ItemRepository) Update(ctx context.Context, userID int64, item *entities.Item) error {
	item.UpdatedAt = time.Now().UTC()

	meta, err := metadataJSON(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode item metadata: %w", err)
	}

	query := r.db.DB.Rebind(`
		UPDATE items SET board_id = ?, title = ?, content = ?, status = ?, position = ?,
			due_date = ?, completed_at = ?, metadata = ?, updated_at = ?
		WHERE id = ? AND board_id IN (
			SELECT b.id FROM boards b JOIN folders f ON f.id = b.folder_id WHERE f.user_id = ?
		)`)
	res, err := r.db.DB.ExecContext(ctx, query,
		item.BoardID, item.Title, item.Content, item.Status, item.Position,
		item.DueDate, item.CompletedAt, meta, item.UpdatedAt, item.ID, userID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, userID int64, id uuid.UUID) error {
	query := r.db.DB.Rebind(`
		DELETE FROM items
		WHERE id = ? AND board_id IN (
			SELECT b.id FROM boards b JOIN folders f ON f.id = b.folder_id WHERE f.user_id = ?
		)`)
	res, err := r.db.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entities.ErrItemNotFound
	}
	return nil
}

// Reorder rewrites item positions within one board transactionally
func (r *ItemRepository) Reorder(ctx context.Context, userID int64, boardID uuid.UUID, ids []uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			UPDATE items SET position = ?
			WHERE id = ? AND board_id = ? AND board_id IN (
				SELECT b.id FROM boards b JOIN folders f ON f.id = b.folder_id WHERE f.user_id = ?
			)`)
		for pos, id := range ids {
			if _, err := tx.ExecContext(ctx, query, pos, id, boardID, userID); err != nil {
				return fmt.Errorf("reorder item %s: %w", id, err)
			}
		}
		return nil
	})
}

// SetHabitDay records or clears one completed day
func (r *ItemRepository) SetHabitDay(ctx context.Context, userID int64, id uuid.UUID, day string, done bool) error {
	// Validate ownership once; the completions table has no user column.
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}

	if done {
		query := r.db.DB.Rebind(`
			INSERT INTO habit_completions (item_id, day) VALUES (?, ?)
			ON CONFLICT (item_id, day) DO NOTHING`)
		if _, err := r.db.DB.ExecContext(ctx, query, id, day); err != nil {
			return fmt.Errorf("record habit day: %w", err)
		}
		return nil
	}

	query := r.db.DB.Rebind(`DELETE FROM habit_completions WHERE item_id = ? AND day = ?`)
	if _, err := r.db.DB.ExecContext(ctx, query, id, day); err != nil {
		return fmt.Errorf("clear habit day: %w", err)
	}
	return nil
}

func (r *ItemRepository) ListHabitDays(ctx context.Context, userID int64, id uuid.UUID) ([]entities.HabitCompletion, error) {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	query := r.db.DB.Rebind(`
		SELECT item_id, day FROM habit_completions
		WHERE item_id = ? ORDER BY day`)

	completions := []entities.HabitCompletion{}
	if err := r.db.DB.SelectContext(ctx, &completions, query, id); err != nil {
		return nil, fmt.Errorf("list habit days: %w", err)
	}
	return completions, nil
}

// AnalyticsRepository answers the read-only stats queries
type AnalyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Overview(ctx context.Context, userID int64) (*entities.AnalyticsOverview, error) {
	var out entities.AnalyticsOverview

	countQuery := r.db.DB.Rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN i.status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.status IN ('pending', 'in_progress') THEN 1 ELSE 0 END), 0)
		FROM items i` + itemOwnerJoin + `
		WHERE f.user_id = ?`)
	if err := r.db.DB.QueryRowContext(ctx, countQuery, userID).
		Scan(&out.TotalItems, &out.CompletedItems, &out.PendingItems); err != nil {
		return nil, fmt.Errorf("overview counts: %w", err)
	}

	habitsQuery := r.db.DB.Rebind(`
		SELECT COUNT(*)
		FROM items i` + itemOwnerJoin + `
		WHERE f.user_id = ? AND b.type = 'habit' AND i.status != 'archived'`)
	if err := r.db.DB.GetContext(ctx, &out.ActiveHabits, habitsQuery, userID); err != nil {
		return nil, fmt.Errorf("overview habits: %w", err)
	}

	// Longest streak is computed in Go; consecutive-day windows are
	// awkward to express portably across both drivers.
	daysQuery := r.db.DB.Rebind(`
		SELECT hc.item_id, hc.day
		FROM habit_completions hc
		JOIN items i ON i.id = hc.item_id` + itemOwnerJoin + `
		WHERE f.user_id = ?
		ORDER BY hc.item_id, hc.day`)
	completions := []entities.HabitCompletion{}
	if err := r.db.DB.SelectContext(ctx, &completions, daysQuery, userID); err != nil {
		return nil, fmt.Errorf("overview streaks: %w", err)
	}
	out.LongestStreak = longestStreak(completions)

	return &out, nil
}

func (r *AnalyticsRepository) Completion(ctx context.Context, userID int64, days int) ([]entities.CompletionPoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := r.db.DB.Rebind(`
		SELECT i.completed_at
		FROM items i` + itemOwnerJoin + `
		WHERE f.user_id = ? AND i.status = 'completed' AND i.completed_at >= ?`)

	var stamps []time.Time
	if err := r.db.DB.SelectContext(ctx, &stamps, query, userID, since); err != nil {
		return nil, fmt.Errorf("completion series: %w", err)
	}

	counts := map[string]int{}
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01-02")]++
	}

	// One point per day, zero-filled, oldest first.
	points := make([]entities.CompletionPoint, 0, days)
	start := time.Now().UTC().AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, entities.CompletionPoint{Day: day, Completed: counts[day]})
	}
	return points, nil
}

// longestStreak finds the longest run of consecutive days across all
// habits; input is sorted by item then day.
func longestStreak(completions []entities.HabitCompletion) int {
	longest, run := 0, 0
	var prevItem uuid.UUID
	var prevDay time.Time

	for _, c := range completions {
		day, err := time.Parse("2006-01-02", c.Day)
		if err != nil {
			continue
		}
		if c.ItemID == prevItem && day.Sub(prevDay) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prevItem, prevDay = c.ItemID, day
	}
	return longest
}
