package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/internal/model"
	"uconnect/internal/rabbit"
	"uconnect/internal/repo/inmem"
)

var now = time.Date(2030, 3, 14, 8, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	to   []string
	fail map[string]bool
}

func (f *fakeSender) SendReminder(recipient, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[recipient] {
		return errors.New("mailbox unavailable")
	}
	f.to = append(f.to, recipient)
	return nil
}

// fakeConsumer hands each queued body to the handler, then waits for ctx.
type fakeConsumer struct {
	bodies [][]byte
	errs   chan error
}

func (f *fakeConsumer) Consume(ctx context.Context, handler rabbit.Handler) error {
	for _, b := range f.bodies {
		f.errs <- handler(ctx, b)
	}
	<-ctx.Done()
	return ctx.Err()
}

type fixture struct {
	repo   *inmem.Repository
	reader *Reader
	mail   *fakeSender
	event  int64
	org    int64
}

func newFixture(t *testing.T, consumer Consumer) *fixture {
	t.Helper()
	ctx := context.Background()
	r := inmem.New()

	founderID, err := r.CreateStudent(ctx, &model.Student{Email: "ada@springfield.edu", FirstName: "Ada"})
	require.NoError(t, err)
	schoolID, err := r.CreateSchoolTx(ctx, &model.School{Name: "Springfield", Domain: "springfield.edu"}, founderID)
	require.NoError(t, err)
	bartID, err := r.SignupTx(ctx, &model.Student{Email: "bart@springfield.edu", FirstName: "Bart"}, schoolID)
	require.NoError(t, err)
	_, err = r.SignupTx(ctx, &model.Student{Email: "lisa@springfield.edu", FirstName: "Lisa"}, schoolID)
	require.NoError(t, err)

	orgID, err := r.CreateOrganizationTx(ctx, &model.Organization{Name: "Chess Club", SchoolID: schoolID, AdminID: bartID}, nil)
	require.NoError(t, err)

	eventID, err := r.CreateEventTx(ctx, &model.Event{
		Name:     "Science Fair",
		TypeID:   1,
		From:     now.Add(2 * time.Hour),
		To:       now.Add(4 * time.Hour),
		SchoolID: schoolID,
		Public:   true,
	}, nil)
	require.NoError(t, err)

	log := zerolog.Nop()
	mail := &fakeSender{fail: map[string]bool{}}
	reader := NewReader(consumer, r, mail, &log)
	reader.now = func() time.Time { return now }

	return &fixture{repo: r, reader: reader, mail: mail, event: eventID, org: orgID}
}

func reminder(t *testing.T, eventID int64) []byte {
	t.Helper()
	b, err := json.Marshal(model.ReminderMessage{EventID: eventID, StartsAt: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	return b
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("school event reaches every attendee", func(t *testing.T) {
		f := newFixture(t, nil)

		require.NoError(t, f.reader.handle(ctx, reminder(t, f.event)))
		assert.ElementsMatch(t,
			[]string{"ada@springfield.edu", "bart@springfield.edu", "lisa@springfield.edu"},
			f.mail.to)
	})

	t.Run("organization event reaches members only", func(t *testing.T) {
		f := newFixture(t, nil)
		orgEvent := &model.Event{
			Name:           "Blitz Night",
			TypeID:         6,
			From:           now.Add(6 * time.Hour),
			To:             now.Add(7 * time.Hour),
			OrganizationID: f.org,
		}
		sc, err := f.repo.GetSchoolByDomain(ctx, "springfield.edu")
		require.NoError(t, err)
		orgEvent.SchoolID = sc.ID
		id, err := f.repo.CreateEventTx(ctx, orgEvent, nil)
		require.NoError(t, err)

		require.NoError(t, f.reader.handle(ctx, reminder(t, id)))
		assert.Equal(t, []string{"bart@springfield.edu"}, f.mail.to)
	})

	t.Run("started event is skipped", func(t *testing.T) {
		f := newFixture(t, nil)
		f.reader.now = func() time.Time { return now.Add(3 * time.Hour) }

		require.NoError(t, f.reader.handle(ctx, reminder(t, f.event)))
		assert.Empty(t, f.mail.to)
	})

	t.Run("unknown event is dropped", func(t *testing.T) {
		f := newFixture(t, nil)

		require.NoError(t, f.reader.handle(ctx, reminder(t, 99999)))
		assert.Empty(t, f.mail.to)
	})

	t.Run("malformed message is dropped", func(t *testing.T) {
		f := newFixture(t, nil)

		require.NoError(t, f.reader.handle(ctx, []byte("{not json")))
		assert.Empty(t, f.mail.to)
	})

	t.Run("one failed recipient does not stop the rest", func(t *testing.T) {
		f := newFixture(t, nil)
		f.mail.fail["bart@springfield.edu"] = true

		require.NoError(t, f.reader.handle(ctx, reminder(t, f.event)))
		assert.ElementsMatch(t, []string{"ada@springfield.edu", "lisa@springfield.edu"}, f.mail.to)
	})
}

func TestReaderStartStop(t *testing.T) {
	consumer := &fakeConsumer{errs: make(chan error, 1)}
	f := newFixture(t, consumer)
	consumer.bodies = [][]byte{reminder(t, f.event)}

	f.reader.Start(context.Background())

	select {
	case err := <-consumer.errs:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not consumed")
	}

	f.reader.Stop()
	assert.Len(t, f.mail.to, 3)
}
