package jobs

import (
	"context"
	"time"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/logger"
)

// A sweep over every org is bounded; a stuck database must not pin the cron
// goroutine forever.
const sweepTimeout = 30 * time.Minute

func sweepContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), sweepTimeout)
}

func audit(msg string) {
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(msg)
	}
}
