package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/internal/apperr"
)

func at(h, m int) time.Time {
	return time.Date(2030, 3, 14, h, m, 0, 0, time.UTC)
}

func TestValidateRange(t *testing.T) {
	now := at(9, 0)

	tests := []struct {
		name    string
		from    time.Time
		to      time.Time
		wantMsg string
	}{
		{name: "valid", from: at(10, 0), to: at(11, 0)},
		{name: "starts now", from: now, to: at(10, 0)},
		{name: "in the past", from: now.Add(-time.Hour), to: at(10, 0), wantMsg: MsgInPast},
		{name: "past wins over inverted", from: now.Add(-time.Hour), to: now.Add(-2 * time.Hour), wantMsg: MsgInPast},
		{name: "ends before start", from: at(11, 0), to: at(10, 0), wantMsg: MsgEndsFirst},
		{name: "zero length", from: at(11, 0), to: at(11, 0), wantMsg: MsgEndsFirst},
		{name: "exactly 24h", from: at(10, 0), to: at(10, 0).Add(24 * time.Hour)},
		{name: "longer than 24h", from: at(10, 0), to: at(10, 1).Add(24 * time.Hour), wantMsg: MsgTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange(tc.from, tc.to, now)
			if tc.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tc.wantMsg, err.Error())
		})
	}
}

func TestHasOverlap(t *testing.T) {
	existing := []Interval{{ID: 1, From: at(10, 0), To: at(11, 0)}}

	tests := []struct {
		name string
		c    Interval
		want bool
	}{
		{name: "partial overlap", c: Interval{From: at(10, 30), To: at(11, 30)}, want: true},
		{name: "contained", c: Interval{From: at(10, 15), To: at(10, 45)}, want: true},
		{name: "containing", c: Interval{From: at(9, 0), To: at(12, 0)}, want: true},
		{name: "identical", c: Interval{From: at(10, 0), To: at(11, 0)}, want: true},
		{name: "touching after", c: Interval{From: at(11, 0), To: at(12, 0)}},
		{name: "touching before", c: Interval{From: at(9, 0), To: at(10, 0)}},
		{name: "disjoint", c: Interval{From: at(14, 0), To: at(15, 0)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasOverlap(tc.c, existing))
			// symmetric
			assert.Equal(t, tc.want, HasOverlap(existing[0], []Interval{tc.c}))
		})
	}

	assert.False(t, HasOverlap(Interval{From: at(10, 0), To: at(11, 0)}, nil))
}

func TestCheckOverlap(t *testing.T) {
	existing := []Interval{
		{ID: 1, From: at(8, 0), To: at(9, 0)},
		{ID: 2, From: at(10, 0), To: at(11, 0)},
	}

	err := CheckOverlap(Interval{From: at(10, 30), To: at(11, 30)}, existing)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, MsgOverlap, err.Error())

	hit, ok := FirstOverlap(Interval{From: at(10, 30), To: at(11, 30)}, existing)
	require.True(t, ok)
	assert.Equal(t, int64(2), hit.ID)

	assert.NoError(t, CheckOverlap(Interval{From: at(11, 0), To: at(12, 0)}, existing))
}
