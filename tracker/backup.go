package tracker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupWorkbook copies an existing workbook aside before it is overwritten,
// as <name>_backup_<stamp>.xlsx next to the original. Missing source is not
// an error: there is simply nothing to back up yet.
func BackupWorkbook(path string, now time.Time) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	ext := filepath.Ext(path)
	stamp := now.Format("2006-01-02_150405")
	backupPath := strings.TrimSuffix(path, ext) + "_backup_" + stamp + ext
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(path), err)
	}
	return backupPath, nil
}

func copyFile(srcPath, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dstPath)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dstPath)
		return closeErr
	}
	return nil
}
