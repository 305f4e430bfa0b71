package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisMetrics_Creation(t *testing.T) {
	t.Run("successfully create analysis metrics", func(t *testing.T) {
		m, err := NewAnalysisMetrics()
		require.NoError(t, err)
		assert.NotNil(t, m)
		assert.NotNil(t, m.runsStartedCounter)
		assert.NotNil(t, m.runsCompletedCounter)
		assert.NotNil(t, m.runsFailedCounter)
		assert.NotNil(t, m.runsCancelledCounter)
		assert.NotNil(t, m.runDurationHistogram)
		assert.NotNil(t, m.stageDurationHistogram)
		assert.NotNil(t, m.runsActiveGauge)
	})
}

func TestAnalysisMetrics_RunLifecycle(t *testing.T) {
	m, err := NewAnalysisMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("record completed run", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRunStarted(ctx, "employment", "Ontario")
			m.RecordStageDuration(ctx, "researcher", 2*time.Second)
			m.RecordStageDuration(ctx, "analyst", 3*time.Second)
			m.RecordRunCompleted(ctx, "employment", 12*time.Second)
		})
	})

	t.Run("record failed run with failing stage", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRunStarted(ctx, "landlord-tenant", "Ontario")
			m.RecordRunFailed(ctx, "landlord-tenant", "strategist")
		})
	})

	t.Run("record cancelled run", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRunStarted(ctx, "small-claims", "Ontario")
			m.RecordRunCancelled(ctx, "small-claims")
		})
	})
}

func TestAnalysisMetrics_ConcurrentRecording(t *testing.T) {
	m, err := NewAnalysisMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			caseType := fmt.Sprintf("case-type-%d", id)
			m.RecordRunStarted(ctx, caseType, "Ontario")
			m.RecordStageDuration(ctx, "researcher", time.Duration(id)*100*time.Millisecond)
			if id%2 == 0 {
				m.RecordRunCompleted(ctx, caseType, time.Duration(id)*time.Second)
			} else {
				m.RecordRunFailed(ctx, caseType, "analyst")
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
