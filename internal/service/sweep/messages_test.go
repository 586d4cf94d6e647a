package sweep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverdueTaskMessage(t *testing.T) {
	assert.Equal(t, `Task "Call back" is 1 day overdue`, overdueTaskMessage("Call back", 1))
	assert.Equal(t, `Task "Call back" is 3 days overdue`, overdueTaskMessage("Call back", 3))
}

func TestDueSoonTaskMessage(t *testing.T) {
	due := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, `Task "Demo prep" is due on 2024-03-16`, dueSoonTaskMessage("Demo prep", due))
}

func TestStaleLeadMessage(t *testing.T) {
	days := 4
	assert.Equal(t, `Lead "Dana Reyes" has had no activity for 4 days`, staleLeadMessage("Dana Reyes", &days))

	one := 1
	assert.Equal(t, `Lead "Dana Reyes" has had no activity for 1 day`, staleLeadMessage("Dana Reyes", &one))

	assert.Equal(t, `Lead "Sam Okafor" has no recorded activity yet`, staleLeadMessage("Sam Okafor", nil))
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{
			name: "whole days",
			from: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "calendar days, not 24h intervals",
			from: time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "same day",
			from: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "several days with time-of-day noise",
			from: time.Date(2024, 3, 11, 18, 30, 0, 0, time.UTC),
			to:   time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC),
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daysBetween(tt.from, tt.to))
		})
	}
}
