package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/SecureNotes/internal/models"
)

type sourceFunc func(ctx context.Context) (models.Quota, error)

func (f sourceFunc) GetQuota(ctx context.Context) (models.Quota, error) { return f(ctx) }

func TestPercent(t *testing.T) {
	tests := []struct {
		name   string
		q      models.Quota
		want   int
		wantOK bool
	}{
		{"half", models.Quota{UsedBytes: 512, QuotaBytes: 1024}, 50, true},
		{"rounds", models.Quota{UsedBytes: 1, QuotaBytes: 3}, 33, true},
		{"rounds up", models.Quota{UsedBytes: 2, QuotaBytes: 3}, 67, true},
		{"over", models.Quota{UsedBytes: 1500, QuotaBytes: 1000}, 150, true},
		{"unlimited", models.Quota{UsedBytes: 5, Unlimited: true}, 0, false},
		{"zero limit empty", models.Quota{}, 0, true},
		{"zero limit used", models.Quota{UsedBytes: 1}, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Percent(tt.q)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayPercent(t *testing.T) {
	assert.Equal(t, 100, DisplayPercent(models.Quota{UsedBytes: 1500, QuotaBytes: 1000}))
	assert.Equal(t, 50, DisplayPercent(models.Quota{UsedBytes: 512, QuotaBytes: 1024}))
	assert.Equal(t, 0, DisplayPercent(models.Quota{Unlimited: true}))
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:                         "0 B",
		512:                       "512 B",
		1024:                      "1 KB",
		1536:                      "1.5 KB",
		1100:                      "1.1 KB",
		5 * 1024 * 1024:           "5 MB",
		3 * 1024 * 1024 * 1024:    "3 GB",
		5000 * 1024 * 1024 * 1024: "5000 GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBytes(in), "FormatBytes(%d)", in)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "512 B / 1 KB", Label(models.Quota{UsedBytes: 512, QuotaBytes: 1024}))
	assert.Equal(t, "1.5 KB / Unlimited", Label(models.Quota{UsedBytes: 1536, Unlimited: true}))
}

func TestTracker(t *testing.T) {
	calls := 0
	fail := false
	tr := NewTracker(sourceFunc(func(context.Context) (models.Quota, error) {
		calls++
		if fail {
			return models.Quota{}, errors.New("offline")
		}
		return models.Quota{UsedBytes: int64(calls), QuotaBytes: 100}, nil
	}), nil)

	_, ok := tr.Snapshot()
	assert.False(t, ok)

	q, err := tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.UsedBytes)

	q, err = tr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.UsedBytes, "no caching between refreshes")

	fail = true
	_, err = tr.Refresh(context.Background())
	require.Error(t, err)
	snap, ok := tr.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, int64(2), snap.UsedBytes)
	assert.Equal(t, 3, calls)
}
