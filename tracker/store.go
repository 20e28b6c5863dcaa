package tracker

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// OpenLedger opens (and migrates) the run-ledger SQLite database.
func OpenLedger(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunRecord{}, &ChangeEntry{}, &ProcessedInput{}); err != nil {
		return nil, err
	}
	return db, nil
}

// monthlyLedgerKey and monthlyLedgerName roll the ledger per natural month:
// <prefix><YYYYMM>.db.
func monthlyLedgerKey(now time.Time) string {
	return fmt.Sprintf("%04d%02d", now.Year(), int(now.Month()))
}

func monthlyLedgerName(prefix string, now time.Time) string {
	return prefix + monthlyLedgerKey(now) + ".db"
}
