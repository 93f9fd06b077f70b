package jscc

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// BackupManager copies an output file aside before it is overwritten.
type BackupManager struct {
	now func() time.Time
}

func NewBackupManager() *BackupManager {
	return &BackupManager{now: time.Now}
}

// CreateBackupOf copies path to path.<timestamp>.bak when it exists.
//
// Returns the backup path, or an empty string if there was nothing to back up.
func (bm *BackupManager) CreateBackupOf(path string) (backupPath string, err error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("checking file existence: %w", err)
	}

	backupPath = fmt.Sprintf("%s.%s.bak", path, bm.now().Format("20060102_150405"))
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	slog.Debug("Backed up existing output", "backup", backupPath, "output", path)
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying file: %w", err)
	}
	return out.Close()
}
