package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestTimelineRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.PutDomain(ctx, "talbot", storage.YearRange{From: 2023, To: 2025}); err != nil {
		t.Fatalf("put domain: %v", err)
	}
	if err := store.PutExclusions(ctx, "talbot", 2024, []string{"Talbot_House_1", "element007", "Talbot_House_1", " "}); err != nil {
		t.Fatalf("put exclusions: %v", err)
	}
	if err := store.PutRange(ctx, "talbot", "Fusion_Building", storage.YearRange{From: 2025, To: 2025}); err != nil {
		t.Fatalf("put range: %v", err)
	}
	if err := store.PutFilter(ctx, "talbot", `has_geometry = true`); err != nil {
		t.Fatalf("put filter: %v", err)
	}

	got, err := store.GetTimeline(ctx, "talbot")
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if got.Domain != (storage.YearRange{From: 2023, To: 2025}) {
		t.Fatalf("domain = %+v, want 2023-2025", got.Domain)
	}
	if want := []string{"Talbot_House_1", "element007"}; !slices.Equal(got.Exclusions[2024], want) {
		t.Fatalf("exclusions = %v, want %v", got.Exclusions[2024], want)
	}
	if got.Ranges["Fusion_Building"] != (storage.YearRange{From: 2025, To: 2025}) {
		t.Fatalf("range = %+v, want 2025-2025", got.Ranges["Fusion_Building"])
	}
	if got.Filter != "has_geometry = true" {
		t.Fatalf("filter = %q", got.Filter)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, now)
	}
	if want := []int{2023, 2024, 2025}; !slices.Equal(got.Years(), want) {
		t.Fatalf("years = %v, want %v", got.Years(), want)
	}
}

func TestPutExclusionsReplacesYear(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2023, To: 2025}); err != nil {
		t.Fatalf("put domain: %v", err)
	}
	if err := store.PutExclusions(ctx, "campus", 2023, []string{"a", "b"}); err != nil {
		t.Fatalf("put exclusions: %v", err)
	}
	if err := store.PutExclusions(ctx, "campus", 2024, []string{"c"}); err != nil {
		t.Fatalf("put exclusions: %v", err)
	}
	if err := store.PutExclusions(ctx, "campus", 2023, []string{"b"}); err != nil {
		t.Fatalf("replace exclusions: %v", err)
	}

	got, err := store.GetTimeline(ctx, "campus")
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if !slices.Equal(got.Exclusions[2023], []string{"b"}) {
		t.Fatalf("2023 exclusions = %v, want [b]", got.Exclusions[2023])
	}
	if !slices.Equal(got.Exclusions[2024], []string{"c"}) {
		t.Fatalf("2024 exclusions = %v, want [c]", got.Exclusions[2024])
	}
}

func TestWritesRequireDomain(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutExclusions(ctx, "missing", 2024, []string{"a"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("put exclusions error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.PutRange(ctx, "missing", "a", storage.YearRange{From: 2023, To: 2024}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("put range error = %v, want %v", err, storage.ErrNotFound)
	}
	if err := store.PutFilter(ctx, "missing", "year > 2023"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("put filter error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.GetTimeline(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get timeline error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestInvalidRangesRejected(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2025, To: 2023}); !errors.Is(err, storage.ErrInvalidRange) {
		t.Fatalf("put domain error = %v, want %v", err, storage.ErrInvalidRange)
	}
	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2023, To: 2025}); err != nil {
		t.Fatalf("put domain: %v", err)
	}
	if err := store.PutRange(ctx, "campus", "a", storage.YearRange{From: 2025, To: 2024}); !errors.Is(err, storage.ErrInvalidRange) {
		t.Fatalf("put range error = %v, want %v", err, storage.ErrInvalidRange)
	}
}

func TestDeleteTimelineRemovesChildren(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2023, To: 2025}); err != nil {
		t.Fatalf("put domain: %v", err)
	}
	if err := store.PutExclusions(ctx, "campus", 2023, []string{"a"}); err != nil {
		t.Fatalf("put exclusions: %v", err)
	}

	if err := store.DeleteTimeline(ctx, "campus"); err != nil {
		t.Fatalf("delete timeline: %v", err)
	}
	if err := store.DeleteTimeline(ctx, "campus"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete error = %v, want %v", err, storage.ErrNotFound)
	}

	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2023, To: 2025}); err != nil {
		t.Fatalf("recreate domain: %v", err)
	}
	got, err := store.GetTimeline(ctx, "campus")
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if len(got.Exclusions) != 0 {
		t.Fatalf("exclusions survived delete: %v", got.Exclusions)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.PutDomain(ctx, "campus", storage.YearRange{From: 2023, To: 2025}); !errors.Is(err, context.Canceled) {
		t.Fatalf("put domain error = %v, want %v", err, context.Canceled)
	}
}
