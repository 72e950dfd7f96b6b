package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures a rotating JSON log file written next to stderr.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	fileMu  sync.RWMutex
	fileOut io.Writer
)

// OpenFile routes the output of loggers created afterwards to a rotating file
// in addition to stderr. Closing the returned value detaches and closes it.
func OpenFile(cfg FileConfig) (io.Closer, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileMu.Lock()
	fileOut = lj
	fileMu.Unlock()
	return closerFunc(func() error {
		fileMu.Lock()
		if fileOut == lj {
			fileOut = nil
		}
		fileMu.Unlock()
		return lj.Close()
	}), nil
}

func currentFile() io.Writer {
	fileMu.RLock()
	defer fileMu.RUnlock()
	return fileOut
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
