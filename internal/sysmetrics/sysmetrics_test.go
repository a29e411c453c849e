package sysmetrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pulsepipe/ingest/internal/sysmetrics"
)

func TestSnapshotNeverErrors(t *testing.T) {
	c := sysmetrics.New(t.TempDir())
	snap := c.Snapshot(context.Background())
	assert.False(t, snap.Timestamp.IsZero())
	// Resilience contract: whatever the host reports (even zero values),
	// Snapshot must not panic or require error handling from the caller.
}

func TestOSInfoCachedAcrossSnapshots(t *testing.T) {
	c := sysmetrics.New(t.TempDir())
	first := c.Snapshot(context.Background())
	second := c.Snapshot(context.Background())
	assert.Equal(t, first.OS, second.OS)
}

func TestStartMonitoringDoubleStartIsNoOp(t *testing.T) {
	c := sysmetrics.New(t.TempDir())
	c.StartMonitoring(5 * time.Millisecond)
	c.StartMonitoring(5 * time.Millisecond) // no-op, must not panic/deadlock
	time.Sleep(20 * time.Millisecond)
	c.StopMonitoring()

	assert.NotEmpty(t, c.History())
}

func TestHistoryBoundedAndStoppable(t *testing.T) {
	c := sysmetrics.New(t.TempDir())
	c.StartMonitoring(1 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	c.StopMonitoring()

	hist := c.History()
	assert.LessOrEqual(t, len(hist), 1000)
	assert.NotEmpty(t, hist)
}

func TestStopMonitoringWithoutStartIsSafe(t *testing.T) {
	c := sysmetrics.New(t.TempDir())
	c.StopMonitoring() // must not panic
}
