package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "chimed/pkg/logx"
)

func newFileStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, dir
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %T, want nil store", driver, st)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	ctx := context.Background()

	due := time.Date(2030, 6, 5, 20, 0, 0, 0, time.UTC)
	want := Record{
		ID:         "20300605-200000-000",
		Name:       "water the plants",
		Due:        due,
		Recurrence: "wednesdays",
		Schedule:   "0 0 20 * * WED",
	}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("LoadAll returned %d records, want 1", len(got))
	}
	r := got[0]
	if r.ID != want.ID || r.Name != want.Name || r.Recurrence != want.Recurrence || r.Schedule != want.Schedule {
		t.Fatalf("round-trip mismatch: %+v", r)
	}
	if !r.Due.Equal(want.Due) {
		t.Fatalf("Due = %v, want %v", r.Due, want.Due)
	}
}

func TestSaveOverwritesSameID(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	ctx := context.Background()

	r := Record{ID: "a1", Due: time.Now(), Schedule: "0 0 8 * * *"}
	if err := st.Save(ctx, r); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	r.Expired = true
	if err := st.Save(ctx, r); err != nil {
		t.Fatalf("second Save error: %v", err)
	}

	got, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != 1 || !got[0].Expired {
		t.Fatalf("expected one expired record, got %+v", got)
	}
}

func TestCorruptRecordDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	st, dir := newFileStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, Record{ID: "good", Due: time.Now(), Schedule: "0 0 8 1 1 *"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}

	got, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("LoadAll = %+v, want only the good record", got)
	}
}

func TestDeleteAndDeleteAll(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := st.Save(ctx, Record{ID: id, Due: time.Now(), Schedule: "0 0 8 1 1 *"}); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	if err := st.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// Deleting a missing record is not an error.
	if err := st.Delete(ctx, "b"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}

	got, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("after Delete: %d records, want 2", len(got))
	}

	if err := st.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll error: %v", err)
	}
	got, err = st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("after DeleteAll: %d records, want 0", len(got))
	}
}
