package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/ports"
)

var errBackend = errors.New("backend rejected")

// fakeItemAPI is an in-memory ItemAPI. Set fail to make every call
// return errBackend without touching the stored items.
type fakeItemAPI struct {
	mu    sync.Mutex
	fail  bool
	items map[uuid.UUID]entities.Item
	calls []string
}

func newFakeItemAPI(items ...entities.Item) *fakeItemAPI {
	f := &fakeItemAPI{items: map[uuid.UUID]entities.Item{}}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeItemAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.fail {
		return errBackend
	}
	return nil
}

func (f *fakeItemAPI) ListItems(ctx context.Context, boardID uuid.UUID) ([]entities.Item, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Item, 0, len(f.items))
	for _, it := range f.items {
		if it.BoardID == boardID {
			out = append(out, it.Clone())
		}
	}
	entities.SortByPosition(out)
	return out, nil
}

func (f *fakeItemAPI) CreateItem(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
	if err := f.record("create"); err != nil {
		return nil, err
	}
	item := entities.Item{
		ID:       uuid.New(),
		BoardID:  req.BoardID,
		Title:    req.Title,
		Content:  req.Content,
		Status:   entities.ItemStatusPending,
		Metadata: req.Metadata.Clone(),
	}
	f.mu.Lock()
	f.items[item.ID] = item
	f.mu.Unlock()
	cp := item.Clone()
	return &cp, nil
}

func (f *fakeItemAPI) UpdateItem(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
	if err := f.record("update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, entities.ErrItemNotFound
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Content != nil {
		item.Content = *req.Content
	}
	if req.Metadata != nil {
		item.Metadata = req.Metadata.Clone()
	}
	f.items[id] = item
	cp := item.Clone()
	return &cp, nil
}

func (f *fakeItemAPI) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.items, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeItemAPI) CompleteItem(ctx context.Context, id uuid.UUID, completed bool) (*entities.Item, error) {
	if err := f.record("complete"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, entities.ErrItemNotFound
	}
	item.Complete(completed, time.Now())
	f.items[id] = item
	cp := item.Clone()
	return &cp, nil
}

func (f *fakeItemAPI) MoveItem(ctx context.Context, id uuid.UUID, boardID uuid.UUID) (*entities.Item, error) {
	if err := f.record("move"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, entities.ErrItemNotFound
	}
	item.BoardID = boardID
	f.items[id] = item
	cp := item.Clone()
	return &cp, nil
}

func (f *fakeItemAPI) SetReminder(ctx context.Context, id uuid.UUID, at *time.Time) (*entities.Item, error) {
	if err := f.record("reminder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, entities.ErrItemNotFound
	}
	if at != nil {
		item.Event().SetReminder(*at)
	} else if item.Metadata != nil {
		delete(item.Metadata, "reminder")
	}
	f.items[id] = item
	cp := item.Clone()
	return &cp, nil
}

func (f *fakeItemAPI) ReorderItems(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	if err := f.record("reorder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pos, id := range ids {
		if item, ok := f.items[id]; ok {
			item.Position = pos
			f.items[id] = item
		}
	}
	return nil
}

func (f *fakeItemAPI) CompleteHabit(ctx context.Context, id uuid.UUID, day string, done bool) error {
	return f.record("habit_complete")
}

func (f *fakeItemAPI) ListHabitCompletions(ctx context.Context, id uuid.UUID) ([]entities.HabitCompletion, error) {
	if err := f.record("habit_completions"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeItemAPI) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeItemAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeFolderAPI is an in-memory FolderAPI plus BoardAPI
type fakeFolderAPI struct {
	mu      sync.Mutex
	fail    bool
	folders map[uuid.UUID]entities.Folder
	boards  map[uuid.UUID]entities.Board
}

func newFakeFolderAPI(folders ...entities.Folder) *fakeFolderAPI {
	f := &fakeFolderAPI{
		folders: map[uuid.UUID]entities.Folder{},
		boards:  map[uuid.UUID]entities.Board{},
	}
	for _, fo := range folders {
		for _, b := range fo.Boards {
			f.boards[b.ID] = b
		}
		fo.Boards = nil
		f.folders[fo.ID] = fo
	}
	return f
}

func (f *fakeFolderAPI) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBackend
	}
	return nil
}

func (f *fakeFolderAPI) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeFolderAPI) ListFolders(ctx context.Context) ([]entities.Folder, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Folder, 0, len(f.folders))
	for _, fo := range f.folders {
		out = append(out, fo)
	}
	return out, nil
}

func (f *fakeFolderAPI) GetFolder(ctx context.Context, id uuid.UUID) (*entities.Folder, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fo, ok := f.folders[id]
	if !ok {
		return nil, entities.ErrFolderNotFound
	}
	return &fo, nil
}

func (f *fakeFolderAPI) CreateFolder(ctx context.Context, req ports.CreateFolderRequest) (*entities.Folder, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	fo := entities.Folder{ID: uuid.New(), Name: req.Name, Icon: req.Icon, Color: req.Color}
	f.mu.Lock()
	f.folders[fo.ID] = fo
	f.mu.Unlock()
	return &fo, nil
}

func (f *fakeFolderAPI) UpdateFolder(ctx context.Context, id uuid.UUID, req ports.UpdateFolderRequest) (*entities.Folder, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fo, ok := f.folders[id]
	if !ok {
		return nil, entities.ErrFolderNotFound
	}
	if req.Name != nil {
		fo.Name = *req.Name
	}
	if req.Icon != nil {
		fo.Icon = *req.Icon
	}
	if req.Color != nil {
		fo.Color = *req.Color
	}
	f.folders[id] = fo
	return &fo, nil
}

func (f *fakeFolderAPI) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.folders, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeFolderAPI) ReorderFolders(ctx context.Context, ids []uuid.UUID) error {
	return f.check()
}

func (f *fakeFolderAPI) ListBoards(ctx context.Context, folderID uuid.UUID) ([]entities.Board, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.Board, 0)
	for _, b := range f.boards {
		if b.FolderID == folderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeFolderAPI) CreateBoard(ctx context.Context, folderID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	b := entities.Board{ID: uuid.New(), FolderID: folderID, Name: req.Name, Type: req.Type}
	f.mu.Lock()
	f.boards[b.ID] = b
	f.mu.Unlock()
	return &b, nil
}

func (f *fakeFolderAPI) UpdateBoard(ctx context.Context, id uuid.UUID, req ports.UpdateBoardRequest) (*entities.Board, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		return nil, entities.ErrBoardNotFound
	}
	if req.Name != nil {
		b.Name = *req.Name
	}
	f.boards[id] = b
	return &b, nil
}

func (f *fakeFolderAPI) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.boards, id)
	f.mu.Unlock()
	return nil
}

func testItem(boardID uuid.UUID, title string, pos int) entities.Item {
	return entities.Item{
		ID:       uuid.New(),
		BoardID:  boardID,
		Title:    title,
		Status:   entities.ItemStatusPending,
		Position: pos,
	}
}

func itemsEqual(a, b entities.Item) bool {
	return reflect.DeepEqual(a, b)
}
