package stats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir)
	require.NoError(t, err)

	t.Run("Increment", func(t *testing.T) {
		storage.Increment(Delta{SerpCacheHits: 1, SerpCacheMisses: 2, AuditCacheHits: 3, AuditCacheMisses: 4})
		storage.Increment(Delta{SearchScored: 1, ExperienceScored: 1})

		stats := storage.GetCurrentStats()
		assert.Equal(t, 1, stats.SerpCacheHits)
		assert.Equal(t, 2, stats.SerpCacheMisses)
		assert.Equal(t, 3, stats.AuditCacheHits)
		assert.Equal(t, 4, stats.AuditCacheMisses)
		assert.Equal(t, 1, stats.SearchScored)
		assert.Equal(t, 1, stats.ExperienceScored)
	})

	t.Run("Persistence", func(t *testing.T) {
		require.NoError(t, storage.save())

		storage2, err := NewStorage(tempDir)
		require.NoError(t, err)
		defer storage2.Shutdown()

		assert.Equal(t, 1, storage2.GetCurrentStats().SerpCacheHits)
	})

	t.Run("Cleanup", func(t *testing.T) {
		oldMonth := monthsAgo(2)
		prevMonth := monthsAgo(1)
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{SerpCacheHits: 100}
		storage.stats[prevMonth] = &MonthlyStats{SerpCacheHits: 50}
		storage.mutex.Unlock()

		assert.Equal(t, []string{getCurrentMonth(), prevMonth, oldMonth}, storage.GetAllMonths())

		storage.Cleanup(2)

		_, exists := storage.GetMonthlyStats(oldMonth)
		assert.False(t, exists, "old stats should have been cleaned up")
		_, exists = storage.GetMonthlyStats(prevMonth)
		assert.True(t, exists, "previous month should be retained")
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		before := storage.GetCurrentStats()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					storage.Increment(Delta{SerpCacheHits: 1, AuditCacheHits: 1})
					storage.GetCurrentStats()
				}
			}()
		}
		wg.Wait()

		after := storage.GetCurrentStats()
		assert.Equal(t, 1000, after.SerpCacheHits-before.SerpCacheHits)
		assert.Equal(t, 1000, after.AuditCacheHits-before.AuditCacheHits)
	})

	t.Run("ShutdownFlushes", func(t *testing.T) {
		require.NoError(t, storage.Shutdown())
		require.NoError(t, storage.Shutdown())

		info, err := os.Stat(filepath.Join(tempDir, "stats.json"))
		require.NoError(t, err)
		assert.Less(t, info.Size(), int64(2048))
	})
}

func TestNewStorageRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte("{not json"), 0644))

	_, err := NewStorage(dir)
	assert.Error(t, err)
}
