package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

func TestMain(m *testing.M) {
	ui.ForceNoColor()
	os.Exit(m.Run())
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		dryRun = false
		for _, c := range rootCmd.Commands() {
			c.SilenceUsage = false
		}
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestMigrationCommands_MissingArguments(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"html-to-richtext"}, "Bruk: kalender html-to-richtext <sanity-write-token>"},
		{[]string{"fix-content", "export.csv"}, "Bruk: kalender fix-content <csv-fil> <sanity-write-token>"},
		{[]string{"import"}, "Bruk: kalender import <csv-fil> <sanity-write-token>"},
		{[]string{"upload-images", "a", "b"}, "Bruk: kalender upload-images <sanity-write-token>"},
	} {
		t.Run(tc.args[0], func(t *testing.T) {
			out, err := execute(t, tc.args...)
			if err == nil {
				t.Fatal("expected an error for missing arguments")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %q, want it to contain %q", err, tc.want)
			}
			if !strings.Contains(out, "Usage:") {
				t.Errorf("usage not printed; got:\n%s", out)
			}
		})
	}
}

func TestFixContent_DryRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var (
		mu      sync.Mutex
		methods []string
		auth    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"_id":"a","title":"Frokostmøte","hasContent":false},
			{"_id":"b","title":"Seminar om havbruk","hasContent":true},
			{"_id":"c","title":"Ukjent","hasContent":false}
		]}`))
	}))
	defer srv.Close()

	t.Setenv("KALENDER_PROJECT_ID", "test")
	t.Setenv("KALENDER_API_HOST", srv.URL)
	t.Setenv("KALENDER_NATS_URL", "")

	csvPath := filepath.Join(t.TempDir(), "export.csv")
	csv := "Title,Content\nFrokostmøte,\"<p>Velkommen <b>alle</b></p>\"\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "fix-content", "--dry-run", csvPath, "sk_write")
	if err != nil {
		t.Fatalf("fix-content: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Tørrkjøring",
		"CSV: 1 rader lest",
		"Lager: 3 events totalt, 2 mangler innhold",
		"Konverterer: Frokostmøte... ✓ (1 blokker)",
		"Ingen CSV-treff: Ukjent",
		"Fullført: 1 konvertert, 1 ingen CSV-treff, 0 feilet",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q; got:\n%s", want, out)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, m := range methods {
		if m != http.MethodGet {
			t.Errorf("dry run sent a %s request", m)
		}
	}
	if auth != "Bearer sk_write" {
		t.Errorf("Authorization = %q, want the write token", auth)
	}
}

func TestPrintEventTable(t *testing.T) {
	evs := []model.Event{
		{
			ID:        "a",
			Title:     "Frokostmøte",
			Slug:      "frokostmote",
			Category:  "Conference",
			StartDate: time.Date(2025, 5, 6, 7, 0, 0, 0, time.UTC),
			Content:   model.RawHTML("<p>x</p>"),
		},
		{ID: "b", Title: "Uten dato", Slug: "uten-dato"},
	}
	var buf bytes.Buffer
	printEventTable(&buf, evs, time.UTC)
	out := buf.String()
	for _, want := range []string{"START", "2025-05-06 07:00", "Konferanse", "html", "frokostmote", "2 arrangementer"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q; got:\n%s", want, out)
		}
	}
}

func TestPrintEventDetail(t *testing.T) {
	ev := &model.Event{
		ID:         "a",
		Title:      "Frokostmøte",
		Slug:       "frokostmote",
		Areas:      []string{"ÅKP", "Mafoss"},
		StartDate:  time.Date(2025, 5, 6, 7, 0, 0, 0, time.UTC),
		TicketLink: "https://billett.no",
		Content: model.Blocks{{
			Type:     model.TypeBlock,
			Style:    model.StyleNormal,
			Children: []model.Span{{Type: model.TypeSpan, Text: "Velkommen", Marks: []string{}}},
		}},
	}
	var buf bytes.Buffer
	printEventDetail(&buf, ev, time.UTC)
	out := buf.String()
	for _, want := range []string{"Slug:        frokostmote", "Areas:       ÅKP, Mafoss", "End:         -", "Content:     1 blokker", "Velkommen"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q; got:\n%s", want, out)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]int{"events": 3}); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || got["events"] != 3 {
		t.Errorf("printJSON output = %q", buf.String())
	}
}

func TestPrintNotification(t *testing.T) {
	at := time.Date(2025, 5, 6, 9, 30, 0, 0, time.UTC)
	for _, tc := range []struct {
		name    string
		payload string
		want    string
	}{
		{"Migrated", `{"event_id":"a","title":"Frokostmøte","command":"html-to-richtext","blocks":3}`, "09:30:00 ✓ html-to-richtext Frokostmøte"},
		{"Failed", `{"event_id":"a","title":"Frokostmøte","command":"fix-content","error":"HTTP 403: forbidden"}`, "09:30:00 ✗ fix-content Frokostmøte: HTTP 403: forbidden"},
		{"Image", `{"event_id":"a","asset_id":"image-abc-png","bytes":10}`, "09:30:00 ↑ bilde a → image-abc-png"},
		{"Sync", `{"events":8,"duration_ns":1000}`, "09:30:00 ↓ sync 8 arrangementer"},
		{"SyncFailed", `{"events":0,"duration_ns":1000,"error":"fetch events: boom"}`, "09:30:00 ✗ sync 0 arrangementer: fetch events: boom"},
		{"NotJSON", `hello`, "09:30:00 hello"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			printNotification(&buf, []byte(tc.payload), at)
			if got := strings.TrimRight(buf.String(), "\n"); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWatchLoop(t *testing.T) {
	ch := make(chan []byte, 2)
	ch <- []byte(`{"events":1}`)
	ch <- []byte(`{"events":2}`)
	close(ch)

	var buf bytes.Buffer
	now := func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := watchLoop(context.Background(), ch, &buf, now); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("printed %d lines, want 2:\n%s", got, buf.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := watchLoop(ctx, make(chan []byte), &buf, now); err != nil {
		t.Errorf("cancelled watch: %v", err)
	}
}

func TestColorizeHelpOutput(t *testing.T) {
	in := "Usage:\n  kalender <command>\n\nSite:\n  serve       Start the calendar web server\n"
	out := colorizeHelpOutput(in)
	if !strings.Contains(out, "Usage:\n") {
		t.Errorf("Usage header should stay plain; got %q", out)
	}
	if !strings.Contains(out, "serve") || !strings.Contains(out, "Site:") {
		t.Errorf("content lost; got %q", out)
	}
}

func TestSync_RemoteServer(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.Method+" "+r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":8,"removed":2,"bytes":4096,"duration":"1.2s"}`))
	}))
	defer srv.Close()
	t.Cleanup(func() {
		_ = syncCmd.Flags().Set("server", "")
		_ = syncCmd.Flags().Set("admin-token", "")
	})

	out, err := execute(t, "sync", "--server", srv.URL, "--admin-token", "admin-secret")
	if err != nil {
		t.Fatalf("sync --server: %v\n%s", err, out)
	}
	if gotPath != "POST /api/sync" || gotAuth != "Bearer admin-secret" {
		t.Errorf("request = %q auth %q", gotPath, gotAuth)
	}
	if want := "8 arrangementer, 2 fjernet, 4096 bytes på 1.2s"; !strings.Contains(out, want) {
		t.Errorf("output = %q, want %q", out, want)
	}
}
