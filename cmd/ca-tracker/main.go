package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ca-tracker/tracker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var inputFile string
	var inputFolder string
	var trackingFolder string
	var basename string
	var fixedName bool
	var backup bool
	var reset bool
	var commentSource string
	var ledgerFolder string
	var ledgerPrefix string
	var skipDuplicate bool
	var debug bool
	var today string
	var smtpAddr string
	var mailFrom string
	var mailToCSV string
	var notifyTimeout time.Duration

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&inputFile, "input", "", "Explicit feed file (.csv or .xlsx). Overrides -input-folder.")
	flag.StringVar(&inputFolder, "input-folder", "", "Folder scanned for the latest feed file.")
	flag.StringVar(&trackingFolder, "tracking-folder", "", "Folder for tracking workbooks and logs.")
	flag.StringVar(&basename, "basename", "CA_Tracking", "Workbook basename.")
	flag.BoolVar(&fixedName, "fixed-name", false, "Write one fixed-name workbook instead of timestamped artifacts.")
	flag.BoolVar(&backup, "backup", true, "Back up an existing fixed-name workbook before overwriting.")
	flag.BoolVar(&reset, "reset", false, "Ignore any previous workbook and rebuild the archive from this feed.")
	flag.StringVar(&commentSource, "comment-source", "", "Comment carry-forward strategy: archive or view.")
	flag.StringVar(&ledgerFolder, "ledger-folder", "", "Monthly rolling run-ledger folder (empty disables the ledger).")
	flag.StringVar(&ledgerPrefix, "ledger-prefix", "catrack_", "Run-ledger file prefix.")
	flag.BoolVar(&skipDuplicate, "skip-duplicate-input", false, "Skip the run when the feed file was already processed.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.StringVar(&today, "today", "", "Override the run date (YYYY-MM-DD). For testing window logic.")
	flag.StringVar(&smtpAddr, "smtp-addr", "", "SMTP server address (host:port). Empty prints the summary to stdout.")
	flag.StringVar(&mailFrom, "mail-from", "", "Notification sender address.")
	flag.StringVar(&mailToCSV, "mail-to", "", "Comma-separated notification recipients.")
	flag.DurationVar(&notifyTimeout, "notify-timeout", 10*time.Second, "Notification send timeout.")
	flag.Parse()

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	// Base config from file (optional)
	fileCfg := &tracker.FileConfig{}
	if configPath != "" {
		cfg, err := tracker.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	// Merge config + CLI overrides
	finalInputFile := fileCfg.Input.File
	if visited["input"] {
		finalInputFile = inputFile
	}
	finalInputFolder := fileCfg.Input.Folder
	if visited["input-folder"] {
		finalInputFolder = inputFolder
	}
	finalTracking := fileCfg.Tracking.Folder
	if visited["tracking-folder"] {
		finalTracking = trackingFolder
	}
	finalBasename := fileCfg.Tracking.Basename
	if finalBasename == "" {
		finalBasename = "CA_Tracking"
	}
	if visited["basename"] {
		finalBasename = basename
	}
	finalFixedName := fileCfg.Tracking.FixedName
	if visited["fixed-name"] {
		finalFixedName = fixedName
	}
	finalBackup := true
	if fileCfg.Tracking.Backup != nil {
		finalBackup = *fileCfg.Tracking.Backup
	}
	if visited["backup"] {
		finalBackup = backup
	}

	finalCommentSource := fileCfg.CommentSource
	if visited["comment-source"] {
		finalCommentSource = commentSource
	}
	var strategy tracker.CommentStrategy
	switch strings.TrimSpace(finalCommentSource) {
	case "", "archive":
		strategy = tracker.CommentFromArchive
	case "view":
		strategy = tracker.CommentFromView
	default:
		fmt.Fprintf(os.Stderr, "invalid comment source %q (expected archive or view)\n", finalCommentSource)
		os.Exit(2)
	}

	finalLedgerFolder := fileCfg.Ledger.Folder
	if visited["ledger-folder"] {
		finalLedgerFolder = ledgerFolder
	}
	finalLedgerPrefix := fileCfg.Ledger.Prefix
	if finalLedgerPrefix == "" {
		finalLedgerPrefix = "catrack_"
	}
	if visited["ledger-prefix"] {
		finalLedgerPrefix = ledgerPrefix
	}

	finalSkipDuplicate := fileCfg.SkipDuplicateInput
	if visited["skip-duplicate-input"] {
		finalSkipDuplicate = skipDuplicate
	}
	finalDebug := fileCfg.Debug
	if visited["debug"] {
		finalDebug = debug
	}

	finalSMTP := fileCfg.Notify.SMTPAddr
	if visited["smtp-addr"] {
		finalSMTP = smtpAddr
	}
	finalFrom := fileCfg.Notify.From
	if visited["mail-from"] {
		finalFrom = mailFrom
	}
	finalTo := []string(fileCfg.Notify.To)
	if visited["mail-to"] {
		finalTo = nil
		for _, p := range strings.Split(mailToCSV, ",") {
			if p = strings.TrimSpace(p); p != "" {
				finalTo = append(finalTo, p)
			}
		}
	}
	finalNotifyTimeout := notifyTimeout
	if fileCfg.Notify.TimeoutSeconds > 0 && !visited["notify-timeout"] {
		finalNotifyTimeout = time.Duration(fileCfg.Notify.TimeoutSeconds) * time.Second
	}

	if strings.TrimSpace(finalTracking) == "" {
		fmt.Fprintln(os.Stderr, "missing tracking folder (use -tracking-folder or config tracking.folder)")
		os.Exit(2)
	}
	if strings.TrimSpace(finalInputFile) == "" && strings.TrimSpace(finalInputFolder) == "" {
		fmt.Fprintln(os.Stderr, "missing input (use -input / -input-folder or config input)")
		os.Exit(2)
	}

	var runDate time.Time
	if strings.TrimSpace(today) != "" {
		tm, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(today), time.UTC)
		if err != nil {
			log.Fatalf("parse -today: %v", err)
		}
		runDate = tm
	}

	runner, err := tracker.NewRunner(tracker.RunnerConfig{
		InputFile:          finalInputFile,
		InputFolder:        finalInputFolder,
		TrackingFolder:     finalTracking,
		Basename:           finalBasename,
		FixedName:          finalFixedName,
		Backup:             finalBackup,
		ResetArchive:       reset,
		CommentStrategy:    strategy,
		LedgerFolder:       finalLedgerFolder,
		LedgerPrefix:       finalLedgerPrefix,
		SkipDuplicateInput: finalSkipDuplicate,
		NotifyTimeout:      finalNotifyTimeout,
		Debug:              finalDebug,
		Today:              runDate,
	})
	if err != nil {
		log.Fatalf("init runner: %v", err)
	}
	defer runner.Close()

	if strings.TrimSpace(finalSMTP) != "" {
		if strings.TrimSpace(finalFrom) == "" || len(finalTo) == 0 {
			fmt.Fprintln(os.Stderr, "smtp notification needs -mail-from and -mail-to (or config notify.from / notify.to)")
			os.Exit(2)
		}
		runner.SetNotifier(tracker.NewSMTPNotifier(finalSMTP, finalFrom, finalTo))
	}

	if err := runner.RunOnce(); err != nil {
		log.Fatalf("run once: %v", err)
	}
}
