package download

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// LogProgress returns a ProgressFunc logging download progress at most
// once per second, plus a final line when the transfer completes.
func LogProgress(logger *slog.Logger) ProgressFunc {
	var (
		transferred int64
		start       = time.Now()
		lastLog     time.Time
	)

	return func(n, total int64) {
		transferred += n

		switch {
		case n == 0:
			logProgress(logger, "download complete", transferred, total, start)
		case time.Since(lastLog) >= time.Second:
			lastLog = time.Now()
			logProgress(logger, "downloading", transferred, total, start)
		}
	}
}

func logProgress(logger *slog.Logger, msg string, transferred, total int64, start time.Time) {
	elapsed := time.Since(start)
	attrs := []any{
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", humanize.IBytes(uint64(transferred)),
		"rate", humanize.IBytes(uint64(float64(transferred)/max(elapsed.Seconds(), 0.001))) + "/s",
	}
	if total >= 0 {
		attrs = append(attrs,
			"total", humanize.IBytes(uint64(total)),
			"progress", fmt.Sprintf("%.1f%%", percent(transferred, total)),
		)
	}
	logger.Info(msg, attrs...)
}

func percent(transferred, total int64) float64 {
	if total == 0 {
		return 100
	}
	return float64(transferred) / float64(total) * 100
}
