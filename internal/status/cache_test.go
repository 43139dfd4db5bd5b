package status

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

type history struct {
	snaps []storage.Snapshot
	err   error
}

func (h history) LatestSnapshots() ([]storage.Snapshot, error) {
	return h.snaps, h.err
}

func TestCache_RestoreSeedsEmptyCache(t *testing.T) {
	var c Cache
	n, err := c.Restore(history{snaps: []storage.Snapshot{
		{Timestamp: 500, Index: 0, Report: battery.Report{Percentage: 61}},
		{Timestamp: 500, Index: 1, Report: battery.Report{Percentage: 12}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reports, at := c.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, float32(12), reports[1].Percentage)
	assert.Equal(t, time.Unix(500, 0), at)
}

func TestCache_RestoreKeepsNewerData(t *testing.T) {
	var c Cache
	c.Update([]battery.Report{{Percentage: 90}}, time.Unix(1000, 0))

	n, err := c.Restore(history{snaps: []storage.Snapshot{{Timestamp: 500, Report: battery.Report{Percentage: 61}}}})
	require.NoError(t, err)
	assert.Zero(t, n)

	r, ok := c.Report(0)
	require.True(t, ok)
	assert.Equal(t, float32(90), r.Percentage)
}

func TestCache_RestoreEmptyOrFailingHistory(t *testing.T) {
	var c Cache

	n, err := c.Restore(history{})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.Restore(history{err: errors.New("database is locked")})
	assert.EqualError(t, err, "database is locked")

	_, at := c.Reports()
	assert.True(t, at.IsZero())
}

func TestCache_Empty(t *testing.T) {
	var c Cache

	reports, at := c.Reports()
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
	assert.True(t, at.IsZero())

	_, ok := c.Report(0)
	assert.False(t, ok)
}

func TestCache_UpdateCopies(t *testing.T) {
	var c Cache
	in := []battery.Report{{Percentage: 10}, {Percentage: 20}}
	at := time.Unix(100, 0)
	c.Update(in, at)
	in[0].Percentage = 99

	reports, got := c.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, float32(10), reports[0].Percentage)
	assert.Equal(t, at, got)

	reports[1].Percentage = 0
	r, ok := c.Report(1)
	require.True(t, ok)
	assert.Equal(t, float32(20), r.Percentage)

	_, ok = c.Report(-1)
	assert.False(t, ok)
	_, ok = c.Report(2)
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	var c Cache
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Update([]battery.Report{{Percentage: float32(i)}}, time.Unix(int64(i), 0))
		}(i)
		go func() {
			defer wg.Done()
			c.Reports()
			c.Report(0)
		}()
	}
	wg.Wait()

	reports, _ := c.Reports()
	assert.Len(t, reports, 1)
}
