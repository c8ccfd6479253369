package campus

import (
	"context"

	"uconnect/internal/access"
	"uconnect/internal/model"
	"uconnect/internal/visibility"
)

type SchoolPage struct {
	School        model.School                `json:"school"`
	Students      string                      `json:"students"`
	Events        []visibility.EventView      `json:"events"`
	Organizations []model.OrganizationSummary `json:"organizations"`
	EventTypes    []model.EventType           `json:"event_types"`
	Attends       bool                        `json:"attends"`
}

func (s *Service) SchoolPage(ctx context.Context, viewer access.Viewer, domain string) (*SchoolPage, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}

	schoolEvents, err := s.repo.SchoolEvents(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	var orgEvents []model.Event
	if viewer.Attends(sc.ID) {
		if orgEvents, err = s.repo.MemberOrganizationEvents(ctx, viewer.StudentID, sc.ID); err != nil {
			return nil, err
		}
	}

	orgs, err := s.repo.ListOrganizations(ctx, sc.ID, viewer.StudentID)
	if err != nil {
		return nil, err
	}
	if orgs == nil {
		orgs = []model.OrganizationSummary{}
	}
	types, err := s.repo.ListEventTypes(ctx)
	if err != nil {
		return nil, err
	}

	return &SchoolPage{
		School:        *sc,
		Students:      EstimateStudents(sc.NumStudents),
		Events:        visibility.Resolve(viewer, sc.ID, schoolEvents, orgEvents),
		Organizations: orgs,
		EventTypes:    types,
		Attends:       viewer.Attends(sc.ID),
	}, nil
}
