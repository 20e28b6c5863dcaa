package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

const defaultBasename = "CA_Tracking"

type RunnerConfig struct {
	// InputFile, when set, is ingested directly; otherwise the most recently
	// modified CSV/XLSX in InputFolder is picked.
	InputFile   string
	InputFolder string

	TrackingFolder string
	Basename       string
	// FixedName writes one fixed-name workbook; otherwise each run creates a
	// timestamped artifact and the previous one is found by mtime.
	FixedName bool
	// Backup copies an existing fixed-name workbook aside before overwrite.
	Backup bool

	// ResetArchive ignores any previous workbook and rebuilds from this feed.
	ResetArchive bool

	CommentStrategy CommentStrategy

	// Ledger settings (optional). When Folder is empty no ledger is kept.
	LedgerFolder string
	LedgerPrefix string

	// SkipDuplicateInput skips the run if the feed file (path + digest) was
	// already processed according to the ledger.
	SkipDuplicateInput bool

	NotifyTimeout time.Duration

	Debug bool

	// Today overrides the wall clock for the run's date window.
	Today time.Time
}

type Runner struct {
	cfg       RunnerConfig
	ledger    *gorm.DB
	ledgerKey string
	notify    Notifier
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if strings.TrimSpace(cfg.TrackingFolder) == "" {
		return nil, fmt.Errorf("TrackingFolder is required")
	}
	if strings.TrimSpace(cfg.InputFile) == "" && strings.TrimSpace(cfg.InputFolder) == "" {
		return nil, fmt.Errorf("InputFile or InputFolder is required")
	}
	if strings.TrimSpace(cfg.Basename) == "" {
		cfg.Basename = defaultBasename
	}
	if cfg.CommentStrategy == "" {
		cfg.CommentStrategy = CommentFromArchive
	}
	if strings.TrimSpace(cfg.LedgerPrefix) == "" {
		cfg.LedgerPrefix = "catrack_"
	}
	return &Runner{cfg: cfg, notify: LogNotifier{}}, nil
}

// SetNotifier swaps the notification collaborator (SMTP in production, a mock
// in tests).
func (r *Runner) SetNotifier(n Notifier) {
	if n != nil {
		r.notify = n
	}
}

func (r *Runner) Close() error {
	if r == nil || r.ledger == nil {
		return nil
	}
	sqlDB, err := r.ledger.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	r.ledger = nil
	r.ledgerKey = ""
	return err
}

func (r *Runner) debugf(format string, args ...any) {
	if r == nil || !r.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

func (r *Runner) today() time.Time {
	if !r.cfg.Today.IsZero() {
		return r.cfg.Today
	}
	return time.Now()
}

// RunOnce performs one full load, merge, regenerate, persist cycle.
func (r *Runner) RunOnce() error {
	start := time.Now()
	w := NewWindow(r.today())
	r.debugf("run_once start: today=%s input=%q folder=%q tracking=%q fixedName=%v reset=%v",
		formatDate(w.Today), r.cfg.InputFile, r.cfg.InputFolder, r.cfg.TrackingFolder, r.cfg.FixedName, r.cfg.ResetArchive)

	inputPath, err := r.resolveInput()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input %s: %w", inputPath, err)
	}
	digest := sha256.Sum256(content)
	inputSHA := hex.EncodeToString(digest[:])

	if r.cfg.SkipDuplicateInput && r.isInputProcessed(inputPath, inputSHA) {
		log.Printf("input already processed, skipping: %s", filepath.Base(inputPath))
		return nil
	}

	table, err := ParseTable(content, filepath.Ext(inputPath))
	if err != nil {
		return fmt.Errorf("parse input %s: %w", inputPath, err)
	}
	batch, err := NormalizeBatch(table)
	if err != nil {
		return err
	}
	r.debugf("normalized %d records from %s", len(batch), filepath.Base(inputPath))

	prevPath, prevArchive, prevView := r.loadPrevious()

	archive, summary := Merge(prevArchive, batch, w)
	next15, last7 := GenerateViews(ViewInput{
		Archive:       archive,
		PrevComments:  CollectCarryComments(prevView, w),
		BatchComments: BatchComments(batch),
		Strategy:      r.cfg.CommentStrategy,
		Window:        w,
	})
	r.debugf("merge: %d added, %d updated, %d status-only, %d unchanged, %d missing",
		len(summary.Added), len(summary.Updated), len(summary.StatusOnly), len(summary.Unchanged), len(summary.MissingFromInput))

	outputPath, err := r.persistWorkbook(next15, last7, archive, start)
	if err != nil {
		return err
	}

	report := BuildRunReport(summary, archive, prevView, next15, w)
	report.Timestamp = start
	report.InputPath = inputPath
	report.OutputPath = outputPath
	report.PreviousPath = prevPath
	if err := r.writeRunLog(report); err != nil {
		log.Printf("warning: failed to write per-run log: %v", err)
	}

	notifyErr := r.notify.SendSummary(RunSummary{
		Next15Count:  len(next15),
		Last7Count:   len(last7),
		ArchiveCount: archive.Len(),
		OutputPath:   outputPath,
		Today:        w.Today,
		Upcoming:     next15,
	}, r.cfg.NotifyTimeout)
	if notifyErr != nil {
		log.Printf("warning: notification failed: %v", notifyErr)
	}

	r.recordRun(start, time.Now(), inputPath, inputSHA, int64(len(content)), outputPath, summary, len(next15), len(last7), archive.Len(), notifyErr)

	r.debugf("run_once done: next15=%d last7=%d archive=%d output=%q elapsed=%s",
		len(next15), len(last7), archive.Len(), outputPath, time.Since(start))
	return nil
}

func (r *Runner) resolveInput() (string, error) {
	if strings.TrimSpace(r.cfg.InputFile) != "" {
		return r.cfg.InputFile, nil
	}
	path, err := FindLatestFeedFile(r.cfg.InputFolder)
	if err != nil {
		return "", err
	}
	r.debugf("selected latest feed file: %s", filepath.Base(path))
	return path, nil
}

// loadPrevious locates and reads the previous tracking workbook. Any failure
// degrades to an empty archive: an unreadable artifact means "no archive yet",
// never a fatal run.
func (r *Runner) loadPrevious() (string, Archive, []Record) {
	if r.cfg.ResetArchive {
		return "", NewArchive(), nil
	}

	var prevPath string
	if r.cfg.FixedName {
		p := r.fixedWorkbookPath()
		if _, err := os.Stat(p); err == nil {
			prevPath = p
		}
	} else {
		p, err := FindLatestWorkbook(r.cfg.TrackingFolder, r.cfg.Basename)
		if err != nil {
			log.Printf("warning: workbook discovery failed: %v", err)
		}
		prevPath = p
	}
	if prevPath == "" {
		return "", NewArchive(), nil
	}
	r.debugf("previous tracking workbook: %s", filepath.Base(prevPath))

	archive, err := ReadArchiveSheet(prevPath)
	if err != nil {
		log.Printf("warning: could not load previous archive (starting fresh): %v", err)
		return prevPath, NewArchive(), nil
	}
	prevView, err := ReadViewSheet(prevPath, SheetNext15)
	if err != nil {
		log.Printf("warning: could not load previous Next 15 Days tab: %v", err)
		prevView = nil
	}
	return prevPath, archive, prevView
}

func (r *Runner) fixedWorkbookPath() string {
	return filepath.Join(r.cfg.TrackingFolder, r.cfg.Basename+".xlsx")
}

func (r *Runner) persistWorkbook(next15, last7 []Record, archive Archive, now time.Time) (string, error) {
	if err := os.MkdirAll(r.cfg.TrackingFolder, 0o755); err != nil {
		return "", err
	}
	var outputPath string
	if r.cfg.FixedName {
		outputPath = r.fixedWorkbookPath()
		if r.cfg.Backup {
			backupPath, err := BackupWorkbook(outputPath, now)
			if err != nil {
				log.Printf("warning: backup failed: %v", err)
			} else if backupPath != "" {
				r.debugf("backup created: %s", filepath.Base(backupPath))
			}
		}
	} else {
		stamp := now.Format("20060102_150405")
		outputPath = filepath.Join(r.cfg.TrackingFolder, fmt.Sprintf("%s_%s.xlsx", r.cfg.Basename, stamp))
	}
	if err := WriteWorkbook(outputPath, next15, last7, archive); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	return outputPath, nil
}

func (r *Runner) writeRunLog(rep RunReport) error {
	logFolder := filepath.Join(r.cfg.TrackingFolder, "Logs")
	if err := os.MkdirAll(logFolder, 0o755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(rep.OutputPath), filepath.Ext(rep.OutputPath))
	logPath := filepath.Join(logFolder, stem+".log")
	f, err := os.Create(logPath)
	if err != nil {
		return err
	}
	writeErr := WriteRunLog(f, rep)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// ensureLedgerForNow opens the monthly rolling ledger DB, switching files on
// month boundaries. An empty LedgerFolder disables the ledger entirely.
func (r *Runner) ensureLedgerForNow() error {
	if strings.TrimSpace(r.cfg.LedgerFolder) == "" {
		return nil
	}
	key := monthlyLedgerKey(r.today())
	if r.ledger != nil && r.ledgerKey == key {
		return nil
	}
	_ = r.Close()
	if err := os.MkdirAll(r.cfg.LedgerFolder, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.cfg.LedgerFolder, monthlyLedgerName(r.cfg.LedgerPrefix, r.today()))
	db, err := OpenLedger(path)
	if err != nil {
		return err
	}
	r.ledger = db
	r.ledgerKey = key
	return nil
}

func (r *Runner) isInputProcessed(path, sha string) bool {
	if err := r.ensureLedgerForNow(); err != nil {
		log.Printf("warning: ledger unavailable: %v", err)
		return false
	}
	if r.ledger == nil {
		return false
	}
	var pi ProcessedInput
	err := r.ledger.Where("path = ? AND sha256 = ?", path, sha).First(&pi).Error
	if err == nil {
		return true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("warning: ledger lookup failed: %v", err)
	}
	return false
}

// recordRun appends the run to the ledger: one RunRecord, ChangeEntry rows,
// and the ProcessedInput digest. Best-effort; the ledger is observability,
// not source of truth.
func (r *Runner) recordRun(start, end time.Time, inputPath, inputSHA string, inputSize int64, outputPath string, sum ChangeSummary, next15, last7, archiveLen int, notifyErr error) {
	if err := r.ensureLedgerForNow(); err != nil {
		log.Printf("warning: ledger unavailable: %v", err)
		return
	}
	if r.ledger == nil {
		return
	}

	run := RunRecord{
		StartedAt:        start.UTC(),
		FinishedAt:       end.UTC(),
		InputPath:        inputPath,
		InputSHA256:      inputSHA,
		OutputPath:       outputPath,
		Added:            len(sum.Added),
		Updated:          len(sum.Updated),
		StatusOnly:       len(sum.StatusOnly),
		Unchanged:        len(sum.Unchanged),
		MissingFromInput: len(sum.MissingFromInput),
		Next15Count:      next15,
		Last7Count:       last7,
		ArchiveCount:     archiveLen,
	}
	if notifyErr != nil {
		run.NotifyError = notifyErr.Error()
	}

	err := r.ledger.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		var entries []ChangeEntry
		for _, id := range sum.Added {
			entries = append(entries, ChangeEntry{RunID: run.ID, ReferenceID: id, Kind: "added"})
		}
		for _, id := range sum.Updated {
			for _, ch := range sum.UpdatedDetails[id] {
				entries = append(entries, ChangeEntry{RunID: run.ID, ReferenceID: id, Kind: "updated", Field: ch.Field, OldValue: ch.Old, NewValue: ch.New})
			}
		}
		for _, id := range sum.StatusOnly {
			for _, ch := range sum.StatusDetails[id] {
				entries = append(entries, ChangeEntry{RunID: run.ID, ReferenceID: id, Kind: "status", Field: ch.Field, OldValue: ch.Old, NewValue: ch.New})
			}
		}
		for _, id := range sum.MissingFromInput {
			entries = append(entries, ChangeEntry{RunID: run.ID, ReferenceID: id, Kind: "missing"})
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		// Re-running the same feed file is allowed; keep one row per digest.
		var pi ProcessedInput
		return tx.Where(&ProcessedInput{Path: inputPath, SHA256: inputSHA}).
			Attrs(ProcessedInput{SizeBytes: inputSize, ProcessedAt: end.UTC(), RunID: run.ID}).
			FirstOrCreate(&pi).Error
	})
	if err != nil {
		log.Printf("warning: ledger write failed: %v", err)
	}
}
