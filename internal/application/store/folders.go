package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/infrastructure/state"
	"github.com/boardflow/core/internal/ports"
)

// AppStateSaver persists the small cross-session UI blob. Satisfied by
// state.LocalState; nil disables persistence.
type AppStateSaver interface {
	AppState() (state.AppState, error)
	SaveAppState(state.AppState) error
}

// FolderStore holds the folder tree: the folder list plus the boards
// of each loaded folder, and which board is currently selected.
type FolderStore struct {
	base
	folders ports.FolderAPI
	boards  ports.BoardAPI
	saver   AppStateSaver

	list     []entities.Folder
	selected *uuid.UUID
}

// FolderSnapshot is a deep copy of the store state for subscribers
type FolderSnapshot struct {
	Folders  []entities.Folder
	Selected *uuid.UUID
	Loading  bool
	Err      error
}

// NewFolderStore creates an empty folder store. saver may be nil.
func NewFolderStore(folders ports.FolderAPI, boards ports.BoardAPI, saver AppStateSaver, log *logger.Logger) *FolderStore {
	s := &FolderStore{
		base:    newBase("folders", log),
		folders: folders,
		boards:  boards,
		saver:   saver,
	}
	if saver != nil {
		if st, err := saver.AppState(); err == nil && st.LastBoardID != nil {
			id := *st.LastBoardID
			s.selected = &id
		}
	}
	return s
}

// Snapshot returns a deep copy of the current state
func (s *FolderStore) Snapshot() FolderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := FolderSnapshot{
		Folders: cloneFolders(s.list),
		Loading: s.loading,
		Err:     s.err,
	}
	if s.selected != nil {
		id := *s.selected
		snap.Selected = &id
	}
	return snap
}

// Fetch replaces the folder list wholesale with server state
func (s *FolderStore) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	folders, err := s.folders.ListFolders(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.list = folders
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// FetchBoards loads the boards of one folder into its element
func (s *FolderStore) FetchBoards(ctx context.Context, folderID uuid.UUID) error {
	boards, err := s.boards.ListBoards(ctx, folderID)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	if idx := findFolder(s.list, folderID); idx >= 0 {
		s.list[idx].Boards = boards
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Create appends the server-confirmed folder
func (s *FolderStore) Create(ctx context.Context, req ports.CreateFolderRequest) (*entities.Folder, error) {
	folder, err := s.folders.CreateFolder(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	s.list = append(s.list, *folder)
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return folder, nil
}

// Update waits for confirmation, then replaces the matching element.
// The loaded boards of the old element are kept when the response
// carries none.
func (s *FolderStore) Update(ctx context.Context, id uuid.UUID, req ports.UpdateFolderRequest) (*entities.Folder, error) {
	folder, err := s.folders.UpdateFolder(ctx, id, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	if idx := findFolder(s.list, id); idx >= 0 {
		if folder.Boards == nil {
			folder.Boards = s.list[idx].Boards
		}
		s.list[idx] = *folder
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return folder, nil
}

// Delete removes the folder only after the server confirmed. A
// selection pointing into the deleted folder is cleared.
func (s *FolderStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.folders.DeleteFolder(ctx, id); err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	if idx := findFolder(s.list, id); idx >= 0 {
		if s.selected != nil {
			for _, b := range s.list[idx].Boards {
				if b.ID == *s.selected {
					s.selected = nil
					break
				}
			}
		}
		s.list = append(s.list[:idx], s.list[idx+1:]...)
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()

	s.persistSelection()
	return nil
}

// Reorder applies the explicit folder ordering immediately and
// restores the exact previous list when the server rejects it.
func (s *FolderStore) Reorder(ctx context.Context, ids []uuid.UUID) error {
	return s.optimistic(uuid.Nil, "reorder",
		func() (func(), bool) {
			prev := cloneFolders(s.list)
			s.list = reorderFoldersByIDs(s.list, ids)
			return func() { s.list = prev }, true
		},
		func() error {
			return s.folders.ReorderFolders(ctx, ids)
		})
}

// CreateBoard appends the server-confirmed board to its folder
func (s *FolderStore) CreateBoard(ctx context.Context, folderID uuid.UUID, req ports.CreateBoardRequest) (*entities.Board, error) {
	board, err := s.boards.CreateBoard(ctx, folderID, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	if idx := findFolder(s.list, folderID); idx >= 0 {
		s.list[idx].Boards = append(s.list[idx].Boards, *board)
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return board, nil
}

// UpdateBoard waits for confirmation, then replaces the board in place
func (s *FolderStore) UpdateBoard(ctx context.Context, id uuid.UUID, req ports.UpdateBoardRequest) (*entities.Board, error) {
	board, err := s.boards.UpdateBoard(ctx, id, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	if fi, bi := findBoard(s.list, id); fi >= 0 {
		s.list[fi].Boards[bi] = *board
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return board, nil
}

// DeleteBoard removes the board after confirmation, clearing the
// selection when it pointed at the deleted board
func (s *FolderStore) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	if err := s.boards.DeleteBoard(ctx, id); err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	if fi, bi := findBoard(s.list, id); fi >= 0 {
		s.list[fi].Boards = append(s.list[fi].Boards[:bi], s.list[fi].Boards[bi+1:]...)
	}
	if s.selected != nil && *s.selected == id {
		s.selected = nil
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()

	s.persistSelection()
	return nil
}

// SelectBoard records the active board and persists it so the next
// session reopens on the same board
func (s *FolderStore) SelectBoard(id uuid.UUID) {
	s.mu.Lock()
	bid := id
	s.selected = &bid
	s.mu.Unlock()
	s.notify()

	s.persistSelection()
}

// SelectedBoard resolves the selected id against the loaded tree
func (s *FolderStore) SelectedBoard() *entities.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	if fi, bi := findBoard(s.list, *s.selected); fi >= 0 {
		b := s.list[fi].Boards[bi]
		return &b
	}
	return nil
}

func (s *FolderStore) persistSelection() {
	if s.saver == nil {
		return
	}

	s.mu.Lock()
	var sel *uuid.UUID
	if s.selected != nil {
		id := *s.selected
		sel = &id
	}
	s.mu.Unlock()

	st, err := s.saver.AppState()
	if err != nil {
		s.logger.Warnw("Failed to load persisted app state", "error", err.Error())
		st = state.AppState{}
	}
	st.LastBoardID = sel
	if err := s.saver.SaveAppState(st); err != nil {
		s.logger.Warnw("Failed to persist board selection", "error", err.Error())
	}
}

func findFolder(folders []entities.Folder, id uuid.UUID) int {
	for i := range folders {
		if folders[i].ID == id {
			return i
		}
	}
	return -1
}

func findBoard(folders []entities.Folder, id uuid.UUID) (int, int) {
	for fi := range folders {
		for bi := range folders[fi].Boards {
			if folders[fi].Boards[bi].ID == id {
				return fi, bi
			}
		}
	}
	return -1, -1
}

func cloneFolders(folders []entities.Folder) []entities.Folder {
	out := make([]entities.Folder, len(folders))
	for i := range folders {
		out[i] = folders[i]
		if folders[i].Boards != nil {
			boards := make([]entities.Board, len(folders[i].Boards))
			copy(boards, folders[i].Boards)
			out[i].Boards = boards
		}
	}
	return out
}

func reorderFoldersByIDs(folders []entities.Folder, ids []uuid.UUID) []entities.Folder {
	out := make([]entities.Folder, 0, len(folders))
	seen := make(map[uuid.UUID]bool, len(ids))

	for _, id := range ids {
		if idx := findFolder(folders, id); idx >= 0 {
			out = append(out, folders[idx])
			seen[id] = true
		}
	}
	for i := range folders {
		if !seen[folders[i].ID] {
			out = append(out, folders[i])
		}
	}
	for i := range out {
		out[i].Position = i
	}
	return out
}
