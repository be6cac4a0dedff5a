// Package state persists the delivered-id record in a JSON file between runs.
package state

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"news_pusher/internal/domain"
)

// orderOldestFirst marks files written by FileStore. Files without it come
// from the older layout, which listed ids newest first.
const orderOldestFirst = "oldest_first"

// fileState is the on-disk layout.
type fileState struct {
	Order     string     `json:"order,omitempty"`
	SeenIDs   []string   `json:"seen_ids"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// rawState is what Load accepts: ids may be any JSON string or number.
type rawState struct {
	Order   string `json:"order"`
	SeenIDs []any  `json:"seen_ids"`
}

// FileStore keeps the seen set in a single JSON file that is rewritten
// wholesale on every save.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "state", "path", path),
	}
}

// Load reads the seen set. A missing or unreadable file yields an empty set.
// Files without the order marker are assumed newest first and reordered.
func (s *FileStore) Load(_ context.Context) (*domain.SeenSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("state file not found, starting empty")
		return domain.NewSeenSet(nil), nil
	}
	if err != nil {
		s.logger.Warn("state file unreadable, starting empty", "error", err)
		return domain.NewSeenSet(nil), nil
	}

	ids, order, err := decodeState(data)
	if err != nil {
		s.logger.Warn("state file corrupt, starting empty", "error", err)
		return domain.NewSeenSet(nil), nil
	}

	if order != orderOldestFirst && len(ids) > 1 {
		ids = oldestFirst(ids)
		s.logger.Info("converted legacy state file order", "seen", len(ids))
	}

	set := domain.NewSeenSet(ids)
	s.logger.Debug("state loaded", "seen", set.Len())
	return set, nil
}

func decodeState(data []byte) ([]string, string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var st rawState
	if err := dec.Decode(&st); err != nil {
		return nil, "", err
	}

	ids := make([]string, 0, len(st.SeenIDs))
	for i, v := range st.SeenIDs {
		switch id := v.(type) {
		case string:
			ids = append(ids, strings.TrimSpace(id))
		case json.Number:
			ids = append(ids, id.String())
		default:
			return nil, "", fmt.Errorf("seen_ids[%d]: unsupported value %v", i, v)
		}
	}
	return ids, st.Order, nil
}

// oldestFirst reorders a legacy newest-first list. Numeric ids are sorted
// ascending; anything else is taken in reverse.
func oldestFirst(ids []string) []string {
	out := slices.Clone(ids)

	nums := make(map[string]uint64, len(out))
	for _, id := range out {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			slices.Reverse(out)
			return out
		}
		nums[id] = n
	}

	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(nums[a], nums[b])
	})
	return out
}

// Save writes the set to a temp file next to the target and renames it into
// place, so an interrupted run never leaves a partial file behind.
func (s *FileStore) Save(_ context.Context, set *domain.SeenSet) error {
	now := s.now().UTC()
	data, err := json.MarshalIndent(fileState{
		Order:     orderOldestFirst,
		SeenIDs:   set.IDs(),
		UpdatedAt: &now,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}

	s.logger.Debug("state saved", "seen", set.Len())
	return nil
}
