package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsPerOperation(t *testing.T) {
	c := NewCollector()

	c.Record(OpRead, 10*time.Millisecond, false)
	c.Record(OpRead, 30*time.Millisecond, true)
	c.Record(OpUpload, 200*time.Millisecond, false)

	snap := c.Snapshot()

	require.NotNil(t, snap.Read)
	assert.Equal(t, int64(2), snap.Read.Count)
	assert.Equal(t, int64(1), snap.Read.Errors)
	assert.Equal(t, int64(10), snap.Read.MinTimeMs)
	assert.Equal(t, int64(30), snap.Read.MaxTimeMs)
	assert.Equal(t, float64(20), snap.Read.AvgTimeMs)

	require.NotNil(t, snap.Upload)
	assert.Equal(t, int64(1), snap.Upload.Count)

	assert.Nil(t, snap.Mutate)
	assert.Nil(t, snap.Stream)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, float64(0))
}
