package campus

import (
	"context"
	"strings"

	"uconnect/internal/access"
	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/visibility"
)

// MinOrganizationMembers counts the creator.
const MinOrganizationMembers = 4

const (
	MsgTooFewMembers    = "Organization must have at least 4 members."
	MsgMembersOutside   = "All members must be students of this school"
	MsgOrgNameRequired  = "Organization name is required"
	MsgAdminCannotLeave = "The administrator cannot leave the organization"
)

type OrganizationInput struct {
	Name        string
	Description string
	Phone       string
	Email       string
	MemberIDs   []int64
}

type OrganizationForm struct {
	Candidates []model.Student `json:"candidates"`
}

// OrganizationForm lists the students of the school the viewer can add as
// founding members.
func (s *Service) OrganizationForm(ctx context.Context, viewer access.Viewer, domain string) (*OrganizationForm, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSchool(viewer, sc.ID); err != nil {
		return nil, err
	}

	attendees, err := s.repo.ListAttendees(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	candidates := make([]model.Student, 0, len(attendees))
	for _, st := range attendees {
		if st.ID != viewer.StudentID {
			candidates = append(candidates, st)
		}
	}
	return &OrganizationForm{Candidates: candidates}, nil
}

// CreateOrganization registers an organization at the school with the viewer
// as administrator. Together with the viewer it needs at least
// MinOrganizationMembers students of the school.
func (s *Service) CreateOrganization(ctx context.Context, viewer access.Viewer, domain string, in OrganizationInput) (*model.Organization, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSchool(viewer, sc.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation(MsgOrgNameRequired)
	}

	members := make([]int64, 0, len(in.MemberIDs))
	seen := map[int64]bool{viewer.StudentID: true}
	for _, id := range in.MemberIDs {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members)+1 < MinOrganizationMembers {
		return nil, apperr.State(MsgTooFewMembers)
	}

	n, err := s.repo.CountAttending(ctx, sc.ID, members)
	if err != nil {
		return nil, err
	}
	if n != len(members) {
		return nil, apperr.Validation(MsgMembersOutside)
	}

	o := &model.Organization{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Phone:       strings.TrimSpace(in.Phone),
		Email:       strings.TrimSpace(in.Email),
		SchoolID:    sc.ID,
		AdminID:     viewer.StudentID,
	}
	if _, err := s.repo.CreateOrganizationTx(ctx, o, members); err != nil {
		return nil, err
	}
	return o, nil
}

type OrganizationPage struct {
	Organization model.Organization     `json:"organization"`
	Admin        *model.Student         `json:"admin,omitempty"`
	Members      []model.Student        `json:"members"`
	Events       []visibility.EventView `json:"events"`
	IsMember     bool                   `json:"is_member"`
	IsAdmin      bool                   `json:"is_admin"`
}

// OrganizationPage shows an organization registered at the school. Its events
// are listed only to members who study there.
func (s *Service) OrganizationPage(ctx context.Context, viewer access.Viewer, domain string, orgID int64) (*OrganizationPage, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	o, err := s.organization(ctx, sc, orgID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	page := &OrganizationPage{
		Organization: *o,
		Members:      members,
		Events:       []visibility.EventView{},
		IsAdmin:      viewer.IsAuthenticated() && o.AdminID == viewer.StudentID,
	}
	if page.Members == nil {
		page.Members = []model.Student{}
	}
	for i := range members {
		if members[i].ID == o.AdminID {
			admin := members[i]
			page.Admin = &admin
		}
		if viewer.IsAuthenticated() && members[i].ID == viewer.StudentID {
			page.IsMember = true
		}
	}

	if page.IsMember && viewer.Attends(sc.ID) {
		events, err := s.repo.OrganizationEvents(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			page.Events = append(page.Events, visibility.NewEventView(e))
		}
	}
	return page, nil
}
