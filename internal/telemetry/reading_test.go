package telemetry

import (
	"testing"

	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamValid(t *testing.T) {
	for _, s := range Streams {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, StreamID("gpu").Valid())
}

func TestIndicators(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  []Indicator
	}{
		{
			name:  "cpu danger memory normal",
			value: CPUMemorySample{CPUPercent: 85, MemoryPercent: 40},
			want: []Indicator{
				{Metric: risk.CPUPercent, Value: 85, Tier: risk.Danger},
				{Metric: risk.MemoryPercent, Value: 40, Tier: risk.Normal},
			},
		},
		{
			name:  "traffic anomaly",
			value: TrafficSample{Anomaly: true},
			want:  []Indicator{{Metric: risk.TrafficAnomaly, Value: 1, Tier: risk.Danger}},
		},
		{
			name: "processes with one suspicious",
			value: ProcessList{
				{PID: 1, Name: "init"},
				{PID: 4242, Name: "xmrig", Suspicious: true},
			},
			want: []Indicator{{Metric: risk.SuspiciousCount, Value: 1, Tier: risk.Danger}},
		},
		{
			name:  "clean connections",
			value: ConnectionList{{PID: 10, LocalAddr: "127.0.0.1:22", Status: "LISTEN"}},
			want:  []Indicator{{Metric: risk.SuspiciousCount, Value: 0, Tier: risk.Normal}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Indicators())
		})
	}
}

func TestReadingTier(t *testing.T) {
	r := Reading{Stream: CPUMemory, Value: CPUMemorySample{CPUPercent: 65, MemoryPercent: 50}}
	assert.Equal(t, risk.Warning, r.Tier())

	var empty Reading
	assert.Equal(t, risk.Normal, empty.Tier())

	conns := ConnectionList{{Suspicious: true}, {Suspicious: true}, {}}
	require.Equal(t, 2, conns.SuspiciousCount())
}
