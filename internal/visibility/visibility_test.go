package visibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/internal/access"
	"uconnect/internal/model"
)

const schoolX = 1

func hour(h int) time.Time {
	return time.Date(2030, 5, 2, h, 0, 0, 0, time.UTC)
}

func fixtures() (schoolEvents, orgEvents []model.Event) {
	schoolEvents = []model.Event{
		{ID: 2, Name: "P2", SchoolID: schoolX, From: hour(14), To: hour(15)},
		{ID: 1, Name: "P1", SchoolID: schoolX, Public: true, From: hour(10), To: hour(11)},
		{ID: 9, Name: "elsewhere", SchoolID: 2, Public: true, From: hour(8), To: hour(9)},
	}
	orgEvents = []model.Event{
		{ID: 3, Name: "O1", SchoolID: schoolX, OrganizationID: 5, From: hour(12), To: hour(13)},
	}
	return
}

func names(views []EventView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func TestResolve(t *testing.T) {
	se, oe := fixtures()
	student := access.Viewer{StudentID: 11, SchoolID: schoolX}
	outsider := access.Viewer{StudentID: 12, SchoolID: 2}

	tests := []struct {
		name   string
		viewer access.Viewer
		org    []model.Event
		want   []string
	}{
		{name: "anonymous sees public only", viewer: access.Viewer{}, org: oe, want: []string{"P1"}},
		{name: "student of another school", viewer: outsider, org: oe, want: []string{"P1"}},
		{name: "student without memberships", viewer: student, want: []string{"P1", "P2"}},
		{name: "student with membership", viewer: student, org: oe, want: []string{"P1", "O1", "P2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.viewer, schoolX, se, tc.org)
			assert.Equal(t, tc.want, names(got))
		})
	}
}

func TestResolve_PublicFlag(t *testing.T) {
	se, oe := fixtures()
	got := Resolve(access.Viewer{StudentID: 11, SchoolID: schoolX}, schoolX, se, oe)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].IsPublic)
	assert.True(t, *got[0].IsPublic)
	assert.Nil(t, got[1].IsPublic, "organization events carry no public flag")
	require.NotNil(t, got[2].IsPublic)
	assert.False(t, *got[2].IsPublic)
}

func TestResolve_DedupAndOrder(t *testing.T) {
	se, oe := fixtures()
	viewer := access.Viewer{StudentID: 11, SchoolID: schoolX}

	dupes := append(append([]model.Event{}, se...), se[1], se[0])
	tied := model.Event{ID: 0, Name: "tie", SchoolID: schoolX, Public: true, From: hour(10), To: hour(10).Add(30 * time.Minute)}
	dupes = append(dupes, tied)

	first := Resolve(viewer, schoolX, dupes, append(oe, oe...))
	assert.Equal(t, []string{"tie", "P1", "O1", "P2"}, names(first))

	// same inputs in another order give the same answer
	reversed := make([]model.Event, len(dupes))
	for i := range dupes {
		reversed[len(dupes)-1-i] = dupes[i]
	}
	assert.Equal(t, first, Resolve(viewer, schoolX, reversed, oe))
}

func TestCanView(t *testing.T) {
	se, oe := fixtures()
	student := access.Viewer{StudentID: 11, SchoolID: schoolX}

	assert.True(t, CanView(access.Viewer{}, se[1], false))
	assert.False(t, CanView(access.Viewer{}, se[0], false))
	assert.True(t, CanView(student, se[0], false))
	assert.False(t, CanView(student, oe[0], false))
	assert.True(t, CanView(student, oe[0], true))
	assert.False(t, CanView(access.Viewer{StudentID: 12, SchoolID: 2}, oe[0], true))
}
