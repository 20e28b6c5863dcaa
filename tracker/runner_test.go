package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type mockNotifier struct {
	summaries []RunSummary
	err       error
}

func (m *mockNotifier) SendSummary(s RunSummary, _ time.Duration) error {
	m.summaries = append(m.summaries, s)
	return m.err
}

const feedCSVHeader = "Security ID,Security Name,Event Type,Response Status(ELIG),Client,Reference ID,Action Class,ISIN,Client Deadline Date,Early Deadline Date,Comments\n"

func feedCSVRow(ref, secName, client, clientDeadline, comment string) string {
	return fmt.Sprintf("SEC-%s,%s,TENDER OFFER,RESPONSE REQUIRED,%s,%s,Voluntary,US0000000001,%s,,%s\n",
		ref, secName, client, ref, clientDeadline, comment)
}

func writeFeed(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(feedCSVHeader+strings.Join(rows, "")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRunner(t *testing.T, cfg RunnerConfig) (*Runner, *mockNotifier) {
	t.Helper()
	if cfg.Today.IsZero() {
		cfg.Today = day("2024-01-10")
	}
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	mock := &mockNotifier{}
	r.SetNotifier(mock)
	return r, mock
}

func TestNewRunnerValidation(t *testing.T) {
	if _, err := NewRunner(RunnerConfig{InputFile: "feed.csv"}); err == nil {
		t.Fatal("missing tracking folder must fail")
	}
	if _, err := NewRunner(RunnerConfig{TrackingFolder: "/tmp/x"}); err == nil {
		t.Fatal("missing input must fail")
	}
}

func TestRunOnce_FirstRun(t *testing.T) {
	dir := t.TempDir()
	feed := writeFeed(t, dir, "feed.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", "call custodian"),
		feedCSVRow("REF002", "BETA LTD", "CIF", "8 Jan 2024", ""),
		feedCSVRow("REF003", "GAMMA PLC", "CIF", "20 Feb 2024", ""),
	)
	tracking := filepath.Join(dir, "tracking")

	r, mock := newTestRunner(t, RunnerConfig{
		InputFile:      feed,
		TrackingFolder: tracking,
		FixedName:      true,
	})
	if err := r.RunOnce(); err != nil {
		t.Fatal(err)
	}

	if len(mock.summaries) != 1 {
		t.Fatalf("notifications = %d", len(mock.summaries))
	}
	sum := mock.summaries[0]
	if sum.Next15Count != 1 || sum.Last7Count != 1 || sum.ArchiveCount != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.Today.Equal(day("2024-01-10")) {
		t.Fatalf("summary today = %v", sum.Today)
	}

	outputPath := filepath.Join(tracking, "CA_Tracking.xlsx")
	if sum.OutputPath != outputPath {
		t.Fatalf("output = %q, want %q", sum.OutputPath, outputPath)
	}
	archive, err := ReadArchiveSheet(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if archive.Len() != 3 {
		t.Fatalf("archive len = %d", archive.Len())
	}
	rec, _ := archive.Get("REF001")
	if rec.Comment != "call custodian" {
		t.Fatalf("comment = %q", rec.Comment)
	}

	logPath := filepath.Join(tracking, "Logs", "CA_Tracking.log")
	logText, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logText), "Added: 3") {
		t.Fatalf("run log:\n%s", logText)
	}
}

func TestRunOnce_SecondRunMergesAndCarries(t *testing.T) {
	dir := t.TempDir()
	tracking := filepath.Join(dir, "tracking")

	feed1 := writeFeed(t, dir, "feed1.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", "call custodian"),
		feedCSVRow("REF002", "BETA LTD", "CIF", "14 Jan 2024", ""),
	)
	r1, _ := newTestRunner(t, RunnerConfig{
		InputFile:      feed1,
		TrackingFolder: tracking,
		FixedName:      true,
	})
	if err := r1.RunOnce(); err != nil {
		t.Fatal(err)
	}

	// Second feed: REF001 renamed and comment blank, REF002 gone.
	feed2 := writeFeed(t, dir, "feed2.csv",
		feedCSVRow("REF001", "ACME CORP RENAMED", "CIF", "12 Jan 2024", ""),
	)
	r2, mock := newTestRunner(t, RunnerConfig{
		InputFile:      feed2,
		TrackingFolder: tracking,
		FixedName:      true,
	})
	if err := r2.RunOnce(); err != nil {
		t.Fatal(err)
	}

	sum := mock.summaries[0]
	if sum.ArchiveCount != 2 {
		t.Fatalf("archive count = %d, want orphan retained", sum.ArchiveCount)
	}
	if sum.Next15Count != 2 {
		t.Fatalf("next15 count = %d", sum.Next15Count)
	}

	archive, err := ReadArchiveSheet(filepath.Join(tracking, "CA_Tracking.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	renamed, _ := archive.Get("REF001")
	if renamed.SecurityName != "ACME CORP RENAMED" {
		t.Fatalf("security name = %q", renamed.SecurityName)
	}
	if renamed.Comment != "call custodian" {
		t.Fatalf("comment = %q, want preserved across runs", renamed.Comment)
	}
	if _, ok := archive.Get("REF002"); !ok {
		t.Fatal("orphan REF002 silently deleted")
	}
}

func TestRunOnce_FixedNameBackup(t *testing.T) {
	dir := t.TempDir()
	tracking := filepath.Join(dir, "tracking")
	feed := writeFeed(t, dir, "feed.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", ""),
	)

	for i := 0; i < 2; i++ {
		r, _ := newTestRunner(t, RunnerConfig{
			InputFile:      feed,
			TrackingFolder: tracking,
			FixedName:      true,
			Backup:         true,
		})
		if err := r.RunOnce(); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := filepath.Glob(filepath.Join(tracking, "CA_Tracking_backup_*.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("backups = %v", backups)
	}
}

func TestRunOnce_TimestampedArtifacts(t *testing.T) {
	dir := t.TempDir()
	tracking := filepath.Join(dir, "tracking")
	feed := writeFeed(t, dir, "feed.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", ""),
	)

	r, mock := newTestRunner(t, RunnerConfig{
		InputFile:      feed,
		TrackingFolder: tracking,
	})
	if err := r.RunOnce(); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(filepath.Base(mock.summaries[0].OutputPath), "CA_Tracking_") {
		t.Fatalf("output = %q", mock.summaries[0].OutputPath)
	}
	found, err := FindLatestWorkbook(tracking, "CA_Tracking")
	if err != nil {
		t.Fatal(err)
	}
	if found != mock.summaries[0].OutputPath {
		t.Fatalf("discovered = %q, want %q", found, mock.summaries[0].OutputPath)
	}
}

func TestRunOnce_ResetArchive(t *testing.T) {
	dir := t.TempDir()
	tracking := filepath.Join(dir, "tracking")

	feed1 := writeFeed(t, dir, "feed1.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", ""),
		feedCSVRow("REF002", "BETA LTD", "CIF", "14 Jan 2024", ""),
	)
	r1, _ := newTestRunner(t, RunnerConfig{InputFile: feed1, TrackingFolder: tracking, FixedName: true})
	if err := r1.RunOnce(); err != nil {
		t.Fatal(err)
	}

	feed2 := writeFeed(t, dir, "feed2.csv",
		feedCSVRow("REF003", "GAMMA PLC", "CIF", "12 Jan 2024", ""),
	)
	r2, mock := newTestRunner(t, RunnerConfig{
		InputFile:      feed2,
		TrackingFolder: tracking,
		FixedName:      true,
		ResetArchive:   true,
	})
	if err := r2.RunOnce(); err != nil {
		t.Fatal(err)
	}

	if mock.summaries[0].ArchiveCount != 1 {
		t.Fatalf("archive count = %d, want rebuilt from scratch", mock.summaries[0].ArchiveCount)
	}
}

func TestRunOnce_NotifyFailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	feed := writeFeed(t, dir, "feed.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", ""),
	)

	r, mock := newTestRunner(t, RunnerConfig{
		InputFile:      feed,
		TrackingFolder: filepath.Join(dir, "tracking"),
		FixedName:      true,
	})
	mock.err = fmt.Errorf("smtp unreachable")
	if err := r.RunOnce(); err != nil {
		t.Fatalf("notify failure must not abort the run: %v", err)
	}
}

func TestRunOnce_MissingColumnsFails(t *testing.T) {
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.csv")
	if err := os.WriteFile(feed, []byte("Security ID,Security Name\nSEC1,ACME CORP\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, _ := newTestRunner(t, RunnerConfig{
		InputFile:      feed,
		TrackingFolder: filepath.Join(dir, "tracking"),
	})
	err := r.RunOnce()
	if err == nil {
		t.Fatal("schema failure must abort the run")
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunOnce_LedgerAndDuplicateSkip(t *testing.T) {
	dir := t.TempDir()
	tracking := filepath.Join(dir, "tracking")
	ledgerDir := filepath.Join(dir, "ledger")
	feed := writeFeed(t, dir, "feed.csv",
		feedCSVRow("REF001", "ACME CORP", "CIF", "12 Jan 2024", ""),
	)

	cfg := RunnerConfig{
		InputFile:          feed,
		TrackingFolder:     tracking,
		FixedName:          true,
		LedgerFolder:       ledgerDir,
		LedgerPrefix:       "catrack_",
		SkipDuplicateInput: true,
	}

	r1, mock1 := newTestRunner(t, cfg)
	if err := r1.RunOnce(); err != nil {
		t.Fatal(err)
	}
	if len(mock1.summaries) != 1 {
		t.Fatalf("first run notifications = %d", len(mock1.summaries))
	}

	ledgerPath := filepath.Join(ledgerDir, "catrack_202401.db")
	if _, err := os.Stat(ledgerPath); err != nil {
		t.Fatalf("ledger file: %v", err)
	}

	// Same feed again: the digest is known, so the run is skipped.
	r2, mock2 := newTestRunner(t, cfg)
	if err := r2.RunOnce(); err != nil {
		t.Fatal(err)
	}
	if len(mock2.summaries) != 0 {
		t.Fatalf("duplicate input must skip, got %d notifications", len(mock2.summaries))
	}

	db, err := OpenLedger(ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	var runs int64
	if err := db.Model(&RunRecord{}).Count(&runs).Error; err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	var entries int64
	if err := db.Model(&ChangeEntry{}).Where("kind = ?", "added").Count(&entries).Error; err != nil {
		t.Fatal(err)
	}
	if entries != 1 {
		t.Fatalf("added entries = %d, want 1", entries)
	}
}
