package repo

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/schedule"
)

// These tests run the shipped SQL against a disposable database:
//
//	UCONNECT_TEST_POSTGRES_DSN=postgres://... go test ./internal/repo/
//
// The schema is dropped and recreated for every test.
const testDSNEnv = "UCONNECT_TEST_POSTGRES_DSN"

var day = time.Date(2030, 3, 14, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

func newPostgres(t *testing.T) Repository {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDSNEnv)
	}

	db, err := dbpg.New(dsn, nil, &dbpg.Options{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	log := zerolog.Nop()
	r, err := NewRepository(db, &log)
	require.NoError(t, err)

	dir := filepath.Join("..", "..", "migrations", "postgres")
	require.NoError(t, r.MigrateDown(dir))
	require.NoError(t, r.MigrateUp(dir))
	t.Cleanup(func() {
		_ = r.MigrateDown(dir)
		_ = db.Master.Close()
	})
	return r
}

type seeded struct {
	school   int64
	founder  int64
	students []int64
	typeID   int64
}

func seedSchool(t *testing.T, r Repository, name, domain string, students ...string) seeded {
	t.Helper()
	ctx := context.Background()

	founder, err := r.CreateStudent(ctx, &model.Student{Email: "founder@" + domain, Password: "pw", FirstName: "Founder", LastName: name})
	require.NoError(t, err)
	school, err := r.CreateSchoolTx(ctx, &model.School{Name: name, Domain: domain}, founder)
	require.NoError(t, err)

	s := seeded{school: school, founder: founder}
	for _, first := range students {
		id, err := r.SignupTx(ctx, &model.Student{Email: first + "@" + domain, Password: "pw", FirstName: first, LastName: name}, school)
		require.NoError(t, err)
		s.students = append(s.students, id)
	}

	types, err := r.ListEventTypes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types)
	s.typeID = types[0].ID
	return s
}

func noOverlap(e *model.Event) CalendarCheck {
	return func(existing []schedule.Interval) error {
		return schedule.CheckOverlap(schedule.Interval{From: e.From, To: e.To}, existing)
	}
}

func createEvent(r Repository, e *model.Event) (int64, error) {
	return r.CreateEventTx(context.Background(), e, noOverlap(e))
}

func TestPostgres_ListSchools(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	seedSchool(t, r, "Springfield University", "springfield.edu")
	seedSchool(t, r, "Shelbyville College", "shelbyville.edu")

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"shelbyville.edu", "springfield.edu"}},
		{query: "SPRING", want: []string{"springfield.edu"}},
		{query: "ville.e", want: []string{"shelbyville.edu"}},
		{query: "%", want: nil},
		{query: "_", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			schools, err := r.ListSchools(ctx, tc.query)
			require.NoError(t, err)
			var got []string
			for _, s := range schools {
				got = append(got, s.Domain)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPostgres_UpsertRating(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	s := seedSchool(t, r, "Springfield", "springfield.edu", "bart", "lisa")

	eventID, err := createEvent(r, &model.Event{Name: "Science Fair", TypeID: s.typeID, From: at(10), To: at(12), SchoolID: s.school, Public: true})
	require.NoError(t, err)

	bart, lisa := s.students[0], s.students[1]
	require.NoError(t, r.UpsertRating(ctx, bart, eventID, 3))
	require.NoError(t, r.UpsertRating(ctx, bart, eventID, 5))

	sum, err := r.RatingSummary(ctx, eventID, bart)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.InDelta(t, 5.0, sum.Average, 0.001)
	require.NotNil(t, sum.Mine)
	assert.Equal(t, 5, *sum.Mine)

	require.NoError(t, r.UpsertRating(ctx, lisa, eventID, 1))
	sum, err = r.RatingSummary(ctx, eventID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 3.0, sum.Average, 0.001)
	assert.Nil(t, sum.Mine)

	assert.ErrorIs(t, r.UpsertRating(ctx, bart, 424242, 4), ErrEventNotFound)
}

func TestPostgres_CalendarScoping(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	a := seedSchool(t, r, "Springfield", "springfield.edu", "bart", "lisa", "milhouse")
	b := seedSchool(t, r, "Shelbyville", "shelbyville.edu")

	_, err := createEvent(r, &model.Event{Name: "Science Fair", TypeID: a.typeID, From: at(10), To: at(12), SchoolID: a.school, Public: true})
	require.NoError(t, err)

	orgID, err := r.CreateOrganizationTx(ctx, &model.Organization{Name: "Chess Club", SchoolID: a.school, AdminID: a.students[0]}, a.students[1:])
	require.NoError(t, err)

	tests := []struct {
		name    string
		event   model.Event
		overlap bool
	}{
		{name: "other school keeps its own calendar", event: model.Event{SchoolID: b.school, From: at(10), To: at(12), Public: true}},
		{name: "same school overlapping", event: model.Event{SchoolID: a.school, From: at(11), To: at(13)}, overlap: true},
		{name: "organization event is on the school calendar", event: model.Event{SchoolID: a.school, OrganizationID: orgID, From: at(9), To: at(11)}, overlap: true},
		{name: "adjacent event", event: model.Event{SchoolID: a.school, From: at(12), To: at(13)}},
		{name: "organization event after the adjacent one", event: model.Event{SchoolID: a.school, OrganizationID: orgID, From: at(13), To: at(14)}},
		{name: "school event overlapping the organization event", event: model.Event{SchoolID: a.school, From: at(13), To: at(15)}, overlap: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.event
			e.Name = tc.name
			e.TypeID = a.typeID
			_, err := createEvent(r, &e)
			if tc.overlap {
				assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}

	events, err := r.OrganizationEvents(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Chess Club", events[0].OrganizationName)
}

func TestPostgres_CreateEventTx_Serializes(t *testing.T) {
	r := newPostgres(t)
	s := seedSchool(t, r, "Springfield", "springfield.edu")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := createEvent(r, &model.Event{Name: "Rush", TypeID: s.typeID, From: at(10), To: at(11), SchoolID: s.school})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}
