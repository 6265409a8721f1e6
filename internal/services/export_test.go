package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beliefatlas/apiserver/internal/logger"
	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
)

type stubProfileRepo struct {
	profiles []types.Profile
	calls    int
}

func (s *stubProfileRepo) List(ctx context.Context, filter store.ProfileListFilter) ([]types.Profile, int, error) {
	s.calls++
	total := len(s.profiles)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return s.profiles[filter.Offset:end], total, nil
}

func (s *stubProfileRepo) Get(ctx context.Context, id string) (types.Profile, error) {
	return types.Profile{}, store.ErrNotFound
}

func (s *stubProfileRepo) GetByUserID(ctx context.Context, userID string) (types.Profile, error) {
	return types.Profile{}, store.ErrNotFound
}

func (s *stubProfileRepo) Create(ctx context.Context, profile types.Profile) (types.Profile, error) {
	return profile, nil
}

func (s *stubProfileRepo) Update(ctx context.Context, profile types.Profile) (types.Profile, error) {
	return profile, nil
}

func (s *stubProfileRepo) Delete(ctx context.Context, id string) error { return nil }

func (s *stubProfileRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: make(map[string][]byte)}
}

func (m *memObjectStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *memObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *memObjectStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) Bucket() string { return "test" }

func testProfile(i int, username string) types.Profile {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return types.Profile{
		ID:     username,
		UserID: username,
		User: types.User{
			Username:  username,
			FirstName: "First",
			LastName:  "Last",
			Role:      types.RoleStudent,
		},
		IdeologyScores: map[string]float64{"economic": 0.5},
		IsCompleted:    i%2 == 0,
		CreatedAt:      created,
		LastUpdated:    created,
		ProfileVersion: 1,
	}
}

func TestExportRosterWalksAllPages(t *testing.T) {
	repo := &stubProfileRepo{}
	for i := 0; i < exportPageSize+5; i++ {
		repo.profiles = append(repo.profiles, testProfile(i, "user"+strings.Repeat("x", i%3)))
	}
	objects := newMemObjectStorage()
	svc := NewExportService(repo, storage.NewStorage(objects), logger.NewNop())

	data, key, err := svc.ExportRoster(context.Background(), store.ProfileListFilter{}, "admin1")
	if err != nil {
		t.Fatalf("ExportRoster: %v", err)
	}
	if repo.calls < 2 {
		t.Errorf("expected at least 2 pages fetched, got %d", repo.calls)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != exportPageSize+6 {
		t.Errorf("expected header plus %d rows, got %d lines", exportPageSize+5, len(lines))
	}
	if !strings.HasPrefix(key, "exports/admin1/") {
		t.Errorf("unexpected archive key %q", key)
	}
	if _, ok := objects.objects[key]; !ok {
		t.Errorf("expected archived copy at %q", key)
	}
}

func TestRosterCSVColumns(t *testing.T) {
	plasticity := 0.25
	profile := testProfile(0, "alice")
	profile.OpinionPlasticity = &plasticity
	profile.IdeologyScores = map[string]float64{
		"economic": 0.75,
		"social":   0.5,
	}

	data, err := RosterCSV([]types.Profile{profile})
	if err != nil {
		t.Fatalf("RosterCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}

	header := strings.Split(lines[0], ",")
	wantCols := 8 + len(types.IdeologyAxes)
	if len(header) != wantCols {
		t.Fatalf("expected %d header columns, got %d", wantCols, len(header))
	}

	row := strings.Split(lines[1], ",")
	if row[0] != "alice" {
		t.Errorf("username = %q", row[0])
	}
	if row[1] != "First Last" {
		t.Errorf("full_name = %q", row[1])
	}
	if row[4] != "0.250" {
		t.Errorf("opinion_plasticity = %q", row[4])
	}
	// axis columns follow the fixed order; unset axes stay blank
	if row[8] != "0.750" {
		t.Errorf("economic = %q", row[8])
	}
	if row[9] != "0.500" {
		t.Errorf("social = %q", row[9])
	}
	if row[10] != "" {
		t.Errorf("tradition = %q, want empty", row[10])
	}
}

func TestRosterCSVNilPlasticityBlank(t *testing.T) {
	data, err := RosterCSV([]types.Profile{testProfile(0, "bob")})
	if err != nil {
		t.Fatalf("RosterCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	row := strings.Split(lines[1], ",")
	if row[4] != "" {
		t.Errorf("opinion_plasticity = %q, want empty", row[4])
	}
}
