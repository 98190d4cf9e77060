// Package quota keeps the latest storage usage reading and formats it.
package quota

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/SecureNotes/internal/models"
)

// Source fetches a fresh quota reading.
type Source interface {
	GetQuota(ctx context.Context) (models.Quota, error)
}

// Tracker holds the last successful reading. It never caches across calls
// to Refresh: every Refresh is a round trip.
type Tracker struct {
	src Source
	log *zap.Logger

	mu   sync.RWMutex
	snap *models.Quota
}

// NewTracker returns a Tracker with no reading.
func NewTracker(src Source, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{src: src, log: log}
}

// Refresh fetches a new reading and replaces the snapshot. On failure the
// previous snapshot is kept.
func (t *Tracker) Refresh(ctx context.Context) (models.Quota, error) {
	q, err := t.src.GetQuota(ctx)
	if err != nil {
		t.log.Warn("failed to load quota", zap.Error(err))
		return models.Quota{}, fmt.Errorf("refresh quota: %w", err)
	}
	t.mu.Lock()
	t.snap = &q
	t.mu.Unlock()
	return q, nil
}

// Snapshot returns the last reading, if any.
func (t *Tracker) Snapshot() (models.Quota, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snap == nil {
		return models.Quota{}, false
	}
	return *t.snap, true
}

// Percent returns round(used/quota*100). The second result is false for
// unlimited accounts. A zero limit reads as full once anything is stored.
func Percent(q models.Quota) (int, bool) {
	if q.Unlimited {
		return 0, false
	}
	if q.QuotaBytes <= 0 {
		if q.UsedBytes > 0 {
			return 100, true
		}
		return 0, true
	}
	return int(math.Round(float64(q.UsedBytes) / float64(q.QuotaBytes) * 100)), true
}

// DisplayPercent is Percent clamped to 0..100 for progress bars.
func DisplayPercent(q models.Quota) int {
	p, ok := Percent(q)
	if !ok {
		return 0
	}
	return min(max(p, 0), 100)
}

// Label renders "<used> / <limit>", e.g. "512 B / 1 KB" or "3.2 MB / Unlimited".
func Label(q models.Quota) string {
	limit := "Unlimited"
	if !q.Unlimited {
		limit = FormatBytes(q.QuotaBytes)
	}
	return FormatBytes(q.UsedBytes) + " / " + limit
}

var units = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n with binary prefixes and at most one decimal,
// dropping a trailing ".0".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	i = min(i, len(units)-1)
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}
