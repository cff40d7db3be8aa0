package entities

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrFolderNotFound   = errors.New("folder not found")
	ErrBoardNotFound    = errors.New("board not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidBoardType = errors.New("invalid board type")
	ErrUnauthorized     = errors.New("unauthorized")
)

// BoardType determines how a board renders its items and which
// metadata keys carry meaning for them.
type BoardType string

const (
	BoardTypeKanban    BoardType = "kanban"
	BoardTypeChecklist BoardType = "checklist"
	BoardTypeNotes     BoardType = "notes"
	BoardTypeCalendar  BoardType = "calendar"
	BoardTypeHabit     BoardType = "habit"
	BoardTypeTimer     BoardType = "timer"
)

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusArchived   ItemStatus = "archived"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Folder is the top-level grouping entity owning one or more boards
type Folder struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Icon      string    `json:"icon" db:"icon"`
	Color     string    `json:"color" db:"color"`
	Position  int       `json:"position" db:"position"`
	Boards    []Board   `json:"boards,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Board is a typed container of items within a folder
type Board struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FolderID  uuid.UUID `json:"folder_id" db:"folder_id"`
	Name      string    `json:"name" db:"name"`
	Type      BoardType `json:"type" db:"type"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Metadata is the open string-keyed map carried by every item.
// Keys are interpreted through the typed views below; unknown keys
// are preserved verbatim across updates.
type Metadata map[string]interface{}

// Item is the polymorphic record behind every board type. Which
// metadata keys mean anything depends on the owning board's type.
type Item struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BoardID     uuid.UUID  `json:"board_id" db:"board_id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Title       string     `json:"title" db:"title"`
	Content     string     `json:"content,omitempty" db:"content"`
	Status      ItemStatus `json:"status" db:"status"`
	Position    int        `json:"position" db:"position"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// HabitCompletion is one recorded day for a habit item
type HabitCompletion struct {
	ItemID uuid.UUID `json:"item_id" db:"item_id"`
	Day    string    `json:"day" db:"day"` // YYYY-MM-DD
}

// User is the Telegram-backed identity
type User struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	LanguageTag string    `json:"language_code" db:"language_code"`
	Settings    Settings  `json:"settings"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Settings is the per-user preference blob persisted via PUT /auth/settings
type Settings struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

// AnalyticsOverview is the stats surface for the overview endpoint
type AnalyticsOverview struct {
	TotalItems     int `json:"total_items"`
	CompletedItems int `json:"completed_items"`
	PendingItems   int `json:"pending_items"`
	ActiveHabits   int `json:"active_habits"`
	LongestStreak  int `json:"longest_streak"`
}

// CompletionPoint is one day of the completion time series
type CompletionPoint struct {
	Day       string `json:"day"`
	Completed int    `json:"completed"`
}

// Deep copy helpers. Stores snapshot items before optimistic mutation
// and restore the snapshot on failure; the copy must share nothing
// with the live element.

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	out := i
	if i.ParentID != nil {
		pid := *i.ParentID
		out.ParentID = &pid
	}
	if i.DueDate != nil {
		d := *i.DueDate
		out.DueDate = &d
	}
	if i.CompletedAt != nil {
		c := *i.CompletedAt
		out.CompletedAt = &c
	}
	out.Metadata = i.Metadata.Clone()
	return out
}

// Clone returns a deep copy of the metadata map
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if vs, ok := v.([]string); ok {
			cp := make([]string, len(vs))
			copy(cp, vs)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Complete marks the item completed or pending and keeps the
// completed_at invariant: non-nil iff status == completed.
func (i *Item) Complete(completed bool, now time.Time) {
	if completed {
		i.Status = ItemStatusCompleted
		i.CompletedAt = &now
	} else {
		i.Status = ItemStatusPending
		i.CompletedAt = nil
	}
}

// IsOverdue reports whether the item has a past due date and is not done
func (i *Item) IsOverdue(now time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	return now.After(*i.DueDate) && i.Status != ItemStatusCompleted
}

// Typed metadata views. One view per board type; each reads and
// writes only the keys that carry meaning for that board.

// TaskView interprets kanban/checklist/timer metadata
type TaskView struct{ item *Item }

func (i *Item) Task() TaskView { return TaskView{item: i} }

func (v TaskView) Priority() Priority {
	if s, ok := v.item.metaString("priority"); ok {
		return Priority(s)
	}
	return PriorityMedium
}

func (v TaskView) SetPriority(p Priority) { v.item.metaSet("priority", string(p)) }

func (v TaskView) Tags() []string    { return v.item.metaStrings("tags") }
func (v TaskView) SetTags(t []string) { v.item.metaSet("tags", t) }

func (v TaskView) Color() string         { s, _ := v.item.metaString("color"); return s }
func (v TaskView) SetColor(c string)     { v.item.metaSet("color", c) }

// TimeSpent is the persisted cumulative tracked time
func (v TaskView) TimeSpent() time.Duration {
	return time.Duration(v.item.metaFloat("time_spent")) * time.Second
}

// AddTimeSpent accumulates elapsed tracked time, floored at zero
func (v TaskView) AddTimeSpent(d time.Duration) {
	if d < 0 {
		d = 0
	}
	v.item.metaSet("time_spent", v.item.metaFloat("time_spent")+d.Seconds())
}

// NoteView interprets notes-board metadata
type NoteView struct{ item *Item }

func (i *Item) Note() NoteView { return NoteView{item: i} }

func (v NoteView) Pinned() bool      { return v.item.metaBool("pinned") }
func (v NoteView) SetPinned(p bool)  { v.item.metaSet("pinned", p) }
func (v NoteView) Color() string     { s, _ := v.item.metaString("color"); return s }
func (v NoteView) SetColor(c string) { v.item.metaSet("color", c) }
func (v NoteView) Tags() []string    { return v.item.metaStrings("tags") }

// HabitView interprets habit-board metadata
type HabitView struct{ item *Item }

func (i *Item) Habit() HabitView { return HabitView{item: i} }

func (v HabitView) Icon() string     { s, _ := v.item.metaString("icon"); return s }
func (v HabitView) SetIcon(s string) { v.item.metaSet("icon", s) }

func (v HabitView) Streak() int       { return int(v.item.metaFloat("streak")) }
func (v HabitView) SetStreak(n int)   { v.item.metaSet("streak", float64(n)) }

// EventView interprets calendar-board metadata
type EventView struct{ item *Item }

func (i *Item) Event() EventView { return EventView{item: i} }

func (v EventView) Start() *time.Time       { return v.item.metaTime("start_date") }
func (v EventView) SetStart(t time.Time)    { v.item.metaSet("start_date", t.UTC().Format(time.RFC3339)) }
func (v EventView) End() *time.Time         { return v.item.metaTime("end_date") }
func (v EventView) SetEnd(t time.Time)      { v.item.metaSet("end_date", t.UTC().Format(time.RFC3339)) }
func (v EventView) AllDay() bool            { return v.item.metaBool("all_day") }
func (v EventView) SetAllDay(b bool)        { v.item.metaSet("all_day", b) }
func (v EventView) Reminder() *time.Time    { return v.item.metaTime("reminder") }
func (v EventView) SetReminder(t time.Time) { v.item.metaSet("reminder", t.UTC().Format(time.RFC3339)) }

// Raw metadata accessors shared by the views. JSON round-trips turn
// numbers into float64 and string slices into []interface{}; the
// accessors normalize both.

func (i *Item) metaSet(key string, val interface{}) {
	if i.Metadata == nil {
		i.Metadata = Metadata{}
	}
	i.Metadata[key] = val
}

func (i *Item) metaString(key string) (string, bool) {
	if i.Metadata == nil {
		return "", false
	}
	s, ok := i.Metadata[key].(string)
	return s, ok
}

func (i *Item) metaBool(key string) bool {
	if i.Metadata == nil {
		return false
	}
	b, _ := i.Metadata[key].(bool)
	return b
}

func (i *Item) metaFloat(key string) float64 {
	if i.Metadata == nil {
		return 0
	}
	switch n := i.Metadata[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func (i *Item) metaTime(key string) *time.Time {
	s, ok := i.metaString(key)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func (i *Item) metaStrings(key string) []string {
	if i.Metadata == nil {
		return nil
	}
	switch vs := i.Metadata[key].(type) {
	case []string:
		out := make([]string, len(vs))
		copy(out, vs)
		return out
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// StreakFrom computes the current streak for a habit: the count of
// consecutive days with a completion, walking back from the given day.
func StreakFrom(days map[string]bool, from time.Time) int {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	// A streak may start yesterday if today is not yet done.
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// SortByPosition orders items by their manual position, id as tiebreak
func SortByPosition(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Position != items[b].Position {
			return items[a].Position < items[b].Position
		}
		return items[a].ID.String() < items[b].ID.String()
	})
}

// Utility methods

func (t BoardType) IsValid() bool {
	switch t {
	case BoardTypeKanban, BoardTypeChecklist, BoardTypeNotes, BoardTypeCalendar, BoardTypeHabit, BoardTypeTimer:
		return true
	default:
		return false
	}
}

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusInProgress, ItemStatusCompleted, ItemStatusArchived:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}
