package storage

import (
	"io"
	"log/slog"
	"time"
)

// progressReader logs upload progress once an upload has been running for
// longer than threshold, at most once per second. Logging never affects
// the data read.
type progressReader struct {
	r         io.Reader
	total     int64
	read      int64
	name      string
	logger    *slog.Logger
	threshold time.Duration
	now       func() time.Time
	start     time.Time
	lastLog   time.Time
}

func newProgressReader(r io.Reader, total int64, name string, logger *slog.Logger, threshold time.Duration, now func() time.Time) *progressReader {
	return &progressReader{
		r:         r,
		total:     total,
		name:      name,
		logger:    logger,
		threshold: threshold,
		now:       now,
		start:     now(),
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	t := p.now()
	if t.Sub(p.start) > p.threshold && t.Sub(p.lastLog) >= time.Second {
		p.lastLog = t
		p.logger.Info("upload progress",
			slog.String("name", p.name),
			slog.Int64("bytes", p.read),
			slog.Int64("total", p.total),
			slog.Float64("percent", p.percent()),
		)
	}
	return n, err
}

func (p *progressReader) percent() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.read) * 100 / float64(p.total)
}
