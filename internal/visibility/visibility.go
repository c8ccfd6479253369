// Package visibility computes which events of a school a viewer may see.
//
// Students of a school see every school event held there plus the events of
// organizations they belong to that are registered at that school. Everyone
// else sees only public school events.
package visibility

import (
	"sort"
	"time"

	"uconnect/internal/access"
	"uconnect/internal/model"
)

type EventView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	From        time.Time `json:"date_from"`
	To          time.Time `json:"date_to"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	// IsPublic is nil for organization events.
	IsPublic         *bool  `json:"is_public"`
	OrganizationID   int64  `json:"organization_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

func NewEventView(e model.Event) EventView {
	v := EventView{
		ID:               e.ID,
		Name:             e.Name,
		Type:             e.TypeName,
		From:             e.From,
		To:               e.To,
		Address:          e.Address,
		Description:      e.Description,
		OrganizationID:   e.OrganizationID,
		OrganizationName: e.OrganizationName,
	}
	if e.IsSchoolEvent() {
		public := e.Public
		v.IsPublic = &public
	}
	return v
}

// Resolve merges the school's own events with the organization events of the
// viewer's memberships. orgEvents must already be limited to organizations
// the viewer is a member of. The result is deduplicated by id and ordered by
// start time.
func Resolve(viewer access.Viewer, schoolID int64, schoolEvents, orgEvents []model.Event) []EventView {
	attends := viewer.Attends(schoolID)
	seen := make(map[int64]struct{}, len(schoolEvents)+len(orgEvents))
	out := make([]EventView, 0, len(schoolEvents)+len(orgEvents))

	add := func(e model.Event) {
		if _, dup := seen[e.ID]; dup {
			return
		}
		seen[e.ID] = struct{}{}
		out = append(out, NewEventView(e))
	}

	for _, e := range schoolEvents {
		if e.SchoolID != schoolID || !e.IsSchoolEvent() {
			continue
		}
		if e.Public || attends {
			add(e)
		}
	}
	if attends {
		for _, e := range orgEvents {
			if e.SchoolID != schoolID || e.IsSchoolEvent() {
				continue
			}
			add(e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From.Equal(out[j].From) {
			return out[i].ID < out[j].ID
		}
		return out[i].From.Before(out[j].From)
	})
	return out
}

// CanView applies the listing policy to a single event. isMember reports
// whether the viewer belongs to the organizing organization.
func CanView(viewer access.Viewer, e model.Event, isMember bool) bool {
	if e.IsSchoolEvent() {
		return e.Public || viewer.Attends(e.SchoolID)
	}
	return isMember && viewer.Attends(e.SchoolID)
}
