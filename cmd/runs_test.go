//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crash-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Name:      "Western Ave",
			Kind:      model.AnalysisCorridor,
			GroupBy:   "senate",
			Status:    model.RunStatusComplete,
			Records:   1200,
			Members:   86,
			StartedAt: now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Name:      "districts",
			Kind:      model.AnalysisDistricts,
			GroupBy:   "house",
			Status:    model.RunStatusFailed,
			StartedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	for _, want := range []string{
		"ID", "NAME", "KIND", "STATUS",
		"abc12345", "Western Ave", "corridor", "complete", "1200", "86", "2025-06-15 10:30",
		"def12345", "districts", "failed", "2025-06-15 09:30",
	} {
		assert.Contains(t, output, want)
	}
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, nil)
	assert.Equal(t, "No runs found.\n", buf.String())
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestShowRun(t *testing.T) {
	run := &model.Run{
		ID:        "run-1",
		Name:      "Western Ave",
		Kind:      model.AnalysisCorridor,
		GroupBy:   "senate",
		Status:    model.RunStatusComplete,
		Footprint: []byte{0x01},
		StartedAt: time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
	}
	rows := []model.DistrictSummary{
		{Key: "6", TotalCrashes: 2, EstimatedEconomicDamages: 22800},
	}

	var buf bytes.Buffer
	require.NoError(t, showRun(&buf, run, rows))

	parts := strings.SplitN(buf.String(), "\n\n", 2)
	require.Len(t, parts, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(parts[0]), &got))
	assert.Equal(t, "run-1", got["id"])
	assert.NotContains(t, got, "footprint")

	assert.True(t, strings.HasPrefix(parts[1], "senate_district,total_crashes,"))
	assert.Contains(t, parts[1], "\n6,2,")
}

func TestShowRun_NoSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, showRun(&buf, &model.Run{ID: "run-1", GroupBy: "none"}, nil))
	assert.NotContains(t, buf.String(), "total_crashes")
}
