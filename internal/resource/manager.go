// Package resource is the process heartbeat: a periodic audit line with
// goroutine and heap figures, so the logs show whether an import storm or a
// stuck sweep is growing the process.
package resource

import (
	"fmt"
	"runtime"
	"time"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/logger"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/serviceiface"
)

type ResourceManager struct {
	interval time.Duration
	stopChan chan struct{}
}

func NewResourceManagerService(cfg map[string]interface{}) serviceiface.Service {
	interval := 30 * time.Second
	if val, ok := cfg["heartbeat_interval"]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				interval = d
			}
		case int:
			interval = time.Duration(v) * time.Second
		case float64:
			interval = time.Duration(v) * time.Second
		}
	}
	return &ResourceManager{
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (rm *ResourceManager) Name() string { return "resourcemanager" }

func (rm *ResourceManager) Start() error {
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("ResourceManager started")
	}
	go rm.heartbeatLoop()
	return nil
}

func (rm *ResourceManager) Stop() error {
	close(rm.stopChan)
	return nil
}

func (rm *ResourceManager) heartbeatLoop() {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stopChan:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf(
					"heartbeat: goroutines=%d heap=%dKB sys=%dKB gc=%d",
					runtime.NumGoroutine(), m.HeapAlloc/1024, m.Sys/1024, m.NumGC))
			}
		}
	}
}
