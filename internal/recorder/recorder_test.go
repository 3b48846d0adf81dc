package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

func callRecord(runID string, turn int, name, args string, err error) engine.CallRecord {
	rec := engine.CallRecord{
		RunID:   runID,
		Turn:    turn,
		Attempt: 1,
		Model:   "test-model",
		Request: []engine.Turn{
			engine.SystemTurn("role"),
			engine.UserTurn("sync crm contacts to the newsletter"),
		},
		Functions: []engine.FunctionSchema{{Name: name, JSONSchema: `{"type":"object"}`}},
		Options:   engine.CompletionOptions{"temperature": 0.1},
		Err:       err,
		Duration:  25 * time.Millisecond,
	}
	if err == nil {
		rec.Response = engine.LLMResponse{
			Assistant:    engine.AssistantTurn("", &engine.FunctionCall{ID: "c", Name: name, Arguments: args}),
			Usage:        engine.Usage{Prompt: 10, Completion: 5, Total: 15},
			FinishReason: "function_call",
		}
	}
	return rec
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_Pragmas(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var mode string
	if err := db.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := db.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestDB_RecordAndCalls(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	recs := []engine.CallRecord{
		callRecord("run-a", 0, "function_define", `{"name":"fetch","integration":"crm"}`, nil),
		callRecord("run-a", 1, "", "", errors.New("503 service unavailable")),
		callRecord("run-a", 1, "task_submit", `{"summary":"done"}`, nil),
		callRecord("run-b", 0, "ask_user_help", `{"question":"which list?"}`, nil),
	}
	for _, r := range recs {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	calls, err := db.Calls(ctx, "run-a")
	if err != nil {
		t.Fatalf("Calls() error = %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("Calls() returned %d rows, want 3", len(calls))
	}
	first := calls[0]
	if first.Response.Assistant.Call == nil || first.Response.Assistant.Call.Name != "function_define" {
		t.Errorf("first response = %+v", first.Response)
	}
	if len(first.Request) != 2 || first.Request[1].Role != engine.RoleUser {
		t.Errorf("first request = %+v", first.Request)
	}
	if first.Duration != 25*time.Millisecond || first.Response.Usage.Total != 15 {
		t.Errorf("first row = %+v", first)
	}
	if calls[1].Error != "503 service unavailable" {
		t.Errorf("error row = %q", calls[1].Error)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(runs))
	}
	byID := map[string]RunSummary{}
	for _, r := range runs {
		byID[r.RunID] = r
	}
	if a := byID["run-a"]; a.Calls != 3 || a.Errors != 1 || a.Model != "test-model" {
		t.Errorf("run-a summary = %+v", a)
	}
}

func TestDB_Search(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_ = db.Record(ctx, callRecord("run-a", 0, "function_define", `{"name":"fetch","integration":"crm"}`, nil))
	_ = db.Record(ctx, callRecord("run-b", 0, "ask_user_help", `{"question":"which mailing list?"}`, nil))

	hits, err := db.Search("mailing", "", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].RunID != "run-b" || hits[0].Function != "ask_user_help" {
		t.Errorf("Search(mailing) = %+v", hits)
	}

	hits, err = db.Search("newsletter", "run-a", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].RunID != "run-a" {
		t.Errorf("Search(newsletter, run-a) = %+v", hits)
	}
}

func TestReplayClient(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_ = db.Record(ctx, callRecord("run-a", 0, "function_define", `{}`, nil))
	_ = db.Record(ctx, callRecord("run-a", 1, "", "", errors.New("timeout")))
	_ = db.Record(ctx, callRecord("run-a", 1, "task_submit", `{}`, nil))

	rc, err := NewReplayClient(ctx, db, "run-a")
	if err != nil {
		t.Fatalf("NewReplayClient() error = %v", err)
	}
	if rc.Remaining() != 2 {
		t.Errorf("Remaining() = %d, want 2", rc.Remaining())
	}

	for _, want := range []string{"function_define", "task_submit"} {
		resp, err := rc.Chat(ctx, "m", nil, nil, nil)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp.Assistant.Call.Name != want {
			t.Errorf("Chat() call = %s, want %s", resp.Assistant.Call.Name, want)
		}
	}
	if _, err := rc.Chat(ctx, "m", nil, nil, nil); !errors.Is(err, ErrReplayExhausted) {
		t.Errorf("Chat() after end error = %v, want ErrReplayExhausted", err)
	}

	if _, err := NewReplayClient(ctx, db, "missing"); err == nil {
		t.Error("NewReplayClient(missing) returned nil error")
	}
}
