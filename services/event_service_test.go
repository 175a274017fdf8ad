package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventFixture struct {
	events       *fakeEventRepo
	participants *fakeParticipantRepo
	categories   *fakeCategoryRepo
	uploader     *fakeUploader
	hub          *fakeNotifier
	ordering     *OrderingService
	service      *EventService
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()

	f := &eventFixture{
		events:       newFakeEventRepo(),
		participants: newFakeParticipantRepo(),
		categories:   newFakeCategoryRepo(),
		uploader:     newFakeUploader(),
		hub:          &fakeNotifier{},
	}
	f.ordering = NewOrderingService(fakeTransactor{}, f.events, f.participants, f.hub, testLogger())
	f.service = NewEventService(
		fakeTransactor{},
		f.events,
		f.participants,
		f.categories,
		f.ordering,
		f.uploader,
		f.hub,
		testLogger(),
	)
	return f
}

func validCreateInput() CreateEventInput {
	return CreateEventInput{
		Name:            "Слепая дегустация бордо",
		Date:            time.Now().Add(72 * time.Hour),
		MaxParticipants: 8,
		Categories: []CategoryInput{
			{Name: "Сорт винограда", Difficulty: 2},
			{Name: "Страна", Difficulty: 1},
		},
	}
}

func TestCreateEvent(t *testing.T) {
	f := newEventFixture(t)

	event, err := f.service.CreateEvent(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.NotZero(t, event.ID)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), event.JoinCode)
	assert.Equal(t, 1, event.CurrentWineNumber)
	assert.False(t, event.Started)
	require.Len(t, event.Categories, 2)
	assert.Equal(t, 2, event.Categories[0].Difficulty)

	stored, err := f.categories.ListByEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateEventInput)
		wantErr error
	}{
		{"blank name", func(in *CreateEventInput) { in.Name = "  " }, ErrEventNameRequired},
		{"zero date", func(in *CreateEventInput) { in.Date = time.Time{} }, ErrEventDateRequired},
		{"zero capacity", func(in *CreateEventInput) { in.MaxParticipants = 0 }, ErrEventInvalidCapacity},
		{"no categories", func(in *CreateEventInput) { in.Categories = nil }, ErrCategoriesRequired},
		{"zero difficulty", func(in *CreateEventInput) { in.Categories[0].Difficulty = 0 }, ErrCategoryInvalidPoints},
		{"blank category name", func(in *CreateEventInput) { in.Categories[0].Name = " " }, ErrValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			_, err := f.service.CreateEvent(ctx, input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateEvent_UniqueJoinCodes(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		event, err := f.service.CreateEvent(ctx, validCreateInput())
		require.NoError(t, err)
		assert.False(t, codes[event.JoinCode], "duplicate join code %s", event.JoinCode)
		codes[event.JoinCode] = true
	}
}

func TestGetEvent_IncludesParticipantsAndCover(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)
	_, err = f.ordering.Join(ctx, event.JoinCode, "Anna")
	require.NoError(t, err)

	key := "events/1/cover_1"
	require.NoError(t, f.events.UpdateCoverKey(ctx, event.ID, &key))

	got, err := f.service.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
	assert.Len(t, got.Categories, 2)
	require.NotNil(t, got.CoverURL)
	assert.Equal(t, "https://cdn.test/"+key, *got.CoverURL)
}

func TestUpdateEvent_PartialUpdate(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)

	newName := "Вертикаль Бароло"
	location := "У Бориса"
	updated, err := f.service.UpdateEvent(ctx, event.ID, UpdateEventInput{
		Name:     &newName,
		Location: &location,
	})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.Name)
	require.NotNil(t, updated.Location)
	assert.Equal(t, location, *updated.Location)
	// Нетронутые поля сохранились.
	assert.Equal(t, event.MaxParticipants, updated.MaxParticipants)
	assert.Equal(t, event.JoinCode, updated.JoinCode)
}

func TestUpdateEvent_EnablingAutoShuffleShufflesOnce(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)
	for _, name := range []string{"Anna", "Boris", "Vera"} {
		_, err := f.ordering.Join(ctx, event.JoinCode, name)
		require.NoError(t, err)
	}

	enable := true
	updated, err := f.service.UpdateEvent(ctx, event.ID, UpdateEventInput{AutoShuffle: &enable})
	require.NoError(t, err)
	assert.True(t, updated.AutoShuffle)

	// Порядки остались плотными 1..N после перетасовки.
	participants, err := f.participants.ListActiveByEvent(ctx, event.ID)
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, p := range participants {
		seen[p.PresentationOrder] = true
	}
	for order := 1; order <= 3; order++ {
		assert.True(t, seen[order])
	}
}

func TestStartEvent(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)

	started, err := f.service.StartEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, started.Started)
	assert.Equal(t, 1, started.CurrentWineNumber)

	_, err = f.service.StartEvent(ctx, event.ID)
	assert.ErrorIs(t, err, ErrEventAlreadyStarted)
}

func TestAdvanceWine_CappedByParticipantCount(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)
	for _, name := range []string{"Anna", "Boris"} {
		_, err := f.ordering.Join(ctx, event.JoinCode, name)
		require.NoError(t, err)
	}
	_, err = f.service.StartEvent(ctx, event.ID)
	require.NoError(t, err)

	next, err := f.service.AdvanceWine(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	_, err = f.service.AdvanceWine(ctx, event.ID)
	assert.ErrorIs(t, err, ErrInvalidWineNumber)
}

func TestDeleteEvent(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)
	require.NoError(t, f.service.DeleteEvent(ctx, event.ID))

	_, err = f.service.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	// Код удалённого события больше не принимает участников.
	_, err = f.ordering.Join(ctx, event.JoinCode, "Anna")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)
}

func TestUploadCover_ReplacesPrevious(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	event, err := f.service.CreateEvent(ctx, validCreateInput())
	require.NoError(t, err)

	first, err := f.service.UploadCover(ctx, event.ID, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "https://cdn.test/events/"))

	_, err = f.service.UploadCover(ctx, event.ID, "image/png", strings.NewReader("png-bytes-2"))
	require.NoError(t, err)

	assert.Len(t, f.uploader.uploads, 2)
	require.Len(t, f.uploader.deletes, 1)
	assert.Equal(t, f.uploader.uploads[0], f.uploader.deletes[0])
}
