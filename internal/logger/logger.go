// Package logger is the audit log service: a size-rotated log file shared by
// every other service through the process-wide GlobalLogger.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type LoggerService struct {
	Config        map[string]interface{}
	mu            sync.Mutex
	file          *os.File
	folderPath    string
	maxFileBytes  int64
	retentionDays int
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewLoggerService reads max_file_mb, retention_days and folder_path from the
// service config block. YAML numbers may decode as int or float64.
func NewLoggerService(config map[string]interface{}) *LoggerService {
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	return &LoggerService{
		Config:        config,
		folderPath:    folder,
		maxFileBytes:  int64(intOption(config, "max_file_mb", 50)) * 1024 * 1024,
		retentionDays: intOption(config, "retention_days", 30),
		stopCh:        make(chan struct{}),
	}
}

func intOption(config map[string]interface{}, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

func (l *LoggerService) Name() string { return "logger" }

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	if err := l.openNewFile(); err != nil {
		return err
	}
	l.wg.Add(1)
	go l.housekeeping()
	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LogAudit writes one audit line through the shared log output.
func (l *LoggerService) LogAudit(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	log.Printf("[AUDIT] %s", msg)
}

func (l *LoggerService) openNewFile() error {
	name := filepath.Join(l.folderPath, fmt.Sprintf("app_%s.log", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	log.SetOutput(file)
	log.Println("logger writing to", name)
	return nil
}

func (l *LoggerService) housekeeping() {
	defer l.wg.Done()
	rotate := time.NewTicker(30 * time.Second)
	retain := time.NewTicker(24 * time.Hour)
	defer rotate.Stop()
	defer retain.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-rotate.C:
			l.rotateIfNeeded()
		case <-retain.C:
			l.pruneOldLogs()
		}
	}
}

func (l *LoggerService) rotateIfNeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxFileBytes {
		return
	}
	if err := l.openNewFile(); err != nil {
		log.Printf("log rotation failed: %v", err)
	}
}

func (l *LoggerService) pruneOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	entries, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		full := filepath.Join(l.folderPath, e.Name())
		info, err := os.Stat(full)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		os.Remove(full)
	}
}

// GlobalLogger is set once at startup; services log audit lines through it.
var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}
