package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/promptsync/internal/app"
	"nathanbeddoewebdev/promptsync/internal/config"
	"nathanbeddoewebdev/promptsync/internal/database"
	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/services/auth"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) *history.SQLiteRepository {
	t.Helper()
	dir := t.TempDir()
	config.SetPath(filepath.Join(dir, "config.json"))
	dbPath := filepath.Join(dir, "promptsync.db")
	database.SetPath(dbPath)

	orig := newContainer
	newContainer = func(opts app.Options) (*app.Container, error) {
		opts.AuthStore = auth.NewMockStore()
		return app.Build(opts)
	}

	repo, err := history.OpenAt(dbPath)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
		newContainer = orig
		config.ResetPath()
		database.ResetPath()
	})
	return repo
}

func seed(t *testing.T, repo *history.SQLiteRepository, engine string, at time.Time) *history.ExecutionRecord {
	t.Helper()
	rec, err := history.NewExecutionRecord(engine, "prompt for "+engine, history.StatusSuccess, false, "dev-1", at)
	if err != nil {
		t.Fatalf("NewExecutionRecord failed: %v", err)
	}
	if err := repo.Add(context.Background(), rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return rec
}

func execHistory(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	cmd.ExecuteContext(context.Background())
	return outBuf.String(), errBuf.String()
}

func TestList_Empty(t *testing.T) {
	setup(t)

	stdout, stderr := execHistory(t, "list")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "No executions recorded.") {
		t.Errorf("expected empty message, got: %s", stdout)
	}
}

func TestList_TableNewestFirst(t *testing.T) {
	repo := setup(t)
	seed(t, repo, "older", baseTime)
	seed(t, repo, "newer", baseTime.Add(time.Hour))

	stdout, _ := execHistory(t, "list")

	if !strings.Contains(stdout, "ENGINE") {
		t.Fatalf("expected table header, got: %s", stdout)
	}
	if strings.Index(stdout, "newer") > strings.Index(stdout, "older") {
		t.Errorf("expected newest first, got: %s", stdout)
	}
}

func TestList_JSONLimit(t *testing.T) {
	repo := setup(t)
	for i := range 3 {
		seed(t, repo, "claude", baseTime.Add(time.Duration(i)*time.Minute))
	}

	stdout, _ := execHistory(t, "list", "--limit", "2", "-o", "json")

	var got []history.ExecutionRecord
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}

func TestList_InvalidLimit(t *testing.T) {
	setup(t)

	_, stderr := execHistory(t, "list", "--limit", "0")

	if !strings.Contains(stderr, "limit must be greater than 0") {
		t.Errorf("expected limit error, got: %s", stderr)
	}
}

func TestList_UnsupportedOutput(t *testing.T) {
	setup(t)

	_, stderr := execHistory(t, "list", "-o", "yaml")

	if !strings.Contains(stderr, "unsupported output format") {
		t.Errorf("expected format error, got: %s", stderr)
	}
}

func TestShow(t *testing.T) {
	repo := setup(t)
	rec := seed(t, repo, "claude", baseTime)

	stdout, stderr := execHistory(t, "show", rec.ID)

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	for _, want := range []string{rec.ID, "claude", "dev-1", "prompt for claude"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output, got: %s", want, stdout)
		}
	}
}

func TestShow_Missing(t *testing.T) {
	setup(t)

	_, stderr := execHistory(t, "show", "nope")

	if !strings.Contains(stderr, `no execution record with id "nope"`) {
		t.Errorf("expected not found error, got: %s", stderr)
	}
}

func TestPending(t *testing.T) {
	repo := setup(t)
	synced := seed(t, repo, "synced", baseTime)
	seed(t, repo, "waiting", baseTime.Add(time.Minute))
	if _, err := repo.MarkSynced(context.Background(), []history.SyncMark{synced.SyncMark()}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	stdout, _ := execHistory(t, "pending")

	if !strings.Contains(stdout, "waiting") {
		t.Errorf("expected pending record, got: %s", stdout)
	}
	if strings.Contains(stdout, synced.ID) {
		t.Errorf("synced record should not be listed, got: %s", stdout)
	}
}

func TestPurge(t *testing.T) {
	repo := setup(t)
	rec := seed(t, repo, "claude", baseTime)

	stdout, stderr := execHistory(t, "purge", rec.ID)

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "Removed") {
		t.Errorf("expected confirmation, got: %s", stdout)
	}
	got, err := repo.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Error("record still present after purge")
	}
}

func TestPurge_Missing(t *testing.T) {
	setup(t)

	_, stderr := execHistory(t, "purge", "nope")

	if !strings.Contains(stderr, "no execution record") {
		t.Errorf("expected not found error, got: %s", stderr)
	}
}
