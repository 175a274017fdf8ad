package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/repositories"
	"github.com/blindcellar/tasting-system/storage"
)

// In-memory реализации репозиториев для юнит-тестов сервисного слоя.
// Повторяют контрактные особенности Postgres-реализаций: уникальные индексы,
// фильтрацию active, сортировку по presentation_order.

type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type broadcast struct {
	EventID int
	Topic   string
	Payload interface{}
}

type fakeNotifier struct {
	mu         sync.Mutex
	broadcasts []broadcast
}

func (n *fakeNotifier) BroadcastToEvent(eventID int, topic string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, broadcast{EventID: eventID, Topic: topic, Payload: payload})
}

func (n *fakeNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	topics := make([]string, len(n.broadcasts))
	for i, b := range n.broadcasts {
		topics[i] = b.Topic
	}
	return topics
}

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID int
	events map[int]*models.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{nextID: 1, events: make(map[int]*models.Event)}
}

func (r *fakeEventRepo) Create(ctx context.Context, exec repositories.SQLExecutor, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Active && e.JoinCode == event.JoinCode {
			return repositories.ErrEventJoinCodeConflict
		}
	}
	event.ID = r.nextID
	r.nextID++
	event.Active = true
	stored := *event
	r.events[event.ID] = &stored
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || !e.Active {
		return nil, repositories.ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEventRepo) FindActiveByJoinCode(ctx context.Context, joinCode string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Active && e.JoinCode == joinCode {
			copied := *e
			return &copied, nil
		}
	}
	return nil, repositories.ErrEventNotFound
}

func (r *fakeEventRepo) List(ctx context.Context, limit, offset int) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.events))
	for id, e := range r.events {
		if e.Active {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	result := make([]models.Event, 0, limit)
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(result) == limit {
			break
		}
		result = append(result, *r.events[id])
	}
	return result, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok || !stored.Active {
		return repositories.ErrEventNotFound
	}
	updated := *event
	updated.Active = stored.Active
	r.events[event.ID] = &updated
	return nil
}

func (r *fakeEventRepo) SetStarted(ctx context.Context, id int, started bool) error {
	return r.mutate(id, func(e *models.Event) { e.Started = started })
}

func (r *fakeEventRepo) SetCurrentWineNumber(ctx context.Context, id int, wineNumber int) error {
	return r.mutate(id, func(e *models.Event) { e.CurrentWineNumber = wineNumber })
}

func (r *fakeEventRepo) SetAutoShuffle(ctx context.Context, id int, autoShuffle bool) error {
	return r.mutate(id, func(e *models.Event) { e.AutoShuffle = autoShuffle })
}

func (r *fakeEventRepo) UpdateCoverKey(ctx context.Context, id int, coverKey *string) error {
	return r.mutate(id, func(e *models.Event) { e.CoverKey = coverKey })
}

func (r *fakeEventRepo) SoftDelete(ctx context.Context, id int) error {
	return r.mutate(id, func(e *models.Event) { e.Active = false })
}

func (r *fakeEventRepo) mutate(id int, fn func(*models.Event)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || !e.Active {
		return repositories.ErrEventNotFound
	}
	fn(e)
	return nil
}

type fakeParticipantRepo struct {
	mu           sync.Mutex
	nextID       int
	participants map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{nextID: 1, participants: make(map[int]*models.Participant)}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.participants {
		if existing.EventID == p.EventID && existing.Active &&
			existing.PresentationOrder == p.PresentationOrder {
			return repositories.ErrParticipantOrderTaken
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.Active = true
	stored := *p
	r.participants[p.ID] = &stored
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipantRepo) ListActiveByEvent(ctx context.Context, eventID int) ([]*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Participant, 0)
	for _, p := range r.participants {
		if p.EventID == eventID && p.Active {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PresentationOrder < result[j].PresentationOrder
	})
	return result, nil
}

func (r *fakeParticipantRepo) CountActiveByEvent(ctx context.Context, eventID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.participants {
		if p.EventID == eventID && p.Active {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) UpdateOrder(ctx context.Context, exec repositories.SQLExecutor, id int, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok || !p.Active {
		return repositories.ErrParticipantNotFound
	}
	for _, other := range r.participants {
		if other.ID != id && other.EventID == p.EventID && other.Active &&
			other.PresentationOrder == order {
			return repositories.ErrParticipantOrderTaken
		}
	}
	p.PresentationOrder = order
	return nil
}

func (r *fakeParticipantRepo) OffsetOrdersByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int, offset int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.EventID == eventID && p.Active {
			p.PresentationOrder += offset
		}
	}
	return nil
}

func (r *fakeParticipantRepo) CompactOffsetOrders(ctx context.Context, exec repositories.SQLExecutor, eventID int, offset int, base int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	leftovers := make([]*models.Participant, 0)
	for _, p := range r.participants {
		if p.EventID == eventID && p.Active && p.PresentationOrder > offset {
			leftovers = append(leftovers, p)
		}
	}
	sort.Slice(leftovers, func(i, j int) bool {
		return leftovers[i].PresentationOrder < leftovers[j].PresentationOrder
	})
	for i, p := range leftovers {
		p.PresentationOrder = base + i + 1
	}

	// Уникальный индекс (event_id, presentation_order) по активным участникам.
	seen := make(map[int]bool)
	for _, p := range r.participants {
		if p.EventID == eventID && p.Active {
			if seen[p.PresentationOrder] {
				return repositories.ErrParticipantOrderTaken
			}
			seen[p.PresentationOrder] = true
		}
	}
	return nil
}

func (r *fakeParticipantRepo) SetReady(ctx context.Context, id int, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Ready = ready
	return nil
}

func (r *fakeParticipantRepo) Deactivate(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Active = false
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	nextID     int
	categories map[int]*models.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{nextID: 1, categories: make(map[int]*models.Category)}
}

func (r *fakeCategoryRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, categories []*models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range categories {
		c.ID = r.nextID
		r.nextID++
		stored := *c
		r.categories[c.ID] = &stored
	}
	return nil
}

func (r *fakeCategoryRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Category, 0)
	for _, c := range r.categories {
		if c.EventID == eventID {
			copied := *c
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeAnswerRepo struct {
	mu      sync.Mutex
	nextID  int
	answers map[int]*models.Answer
	// eventOf разрешает participant -> event для ListByEvent.
	eventOf func(participantID int) (int, bool)
}

func newFakeAnswerRepo(participants *fakeParticipantRepo) *fakeAnswerRepo {
	return &fakeAnswerRepo{
		nextID:  1,
		answers: make(map[int]*models.Answer),
		eventOf: activeEventResolver(participants),
	}
}

func activeEventResolver(participants *fakeParticipantRepo) func(int) (int, bool) {
	return func(participantID int) (int, bool) {
		p, err := participants.FindByID(context.Background(), participantID)
		if err != nil || !p.Active {
			return 0, false
		}
		return p.EventID, true
	}
}

func (r *fakeAnswerRepo) ReplaceForParticipant(ctx context.Context, exec repositories.SQLExecutor, participantID int, answers []*models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.answers {
		if a.ParticipantID == participantID {
			delete(r.answers, id)
		}
	}
	for _, a := range answers {
		a.ID = r.nextID
		r.nextID++
		stored := *a
		r.answers[a.ID] = &stored
	}
	return nil
}

func (r *fakeAnswerRepo) ListByParticipant(ctx context.Context, participantID int) ([]*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Answer, 0)
	for _, a := range r.answers {
		if a.ParticipantID == participantID {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeAnswerRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Answer, 0)
	for _, a := range r.answers {
		if owner, ok := r.eventOf(a.ParticipantID); ok && owner == eventID {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeGuessRepo struct {
	mu      sync.Mutex
	nextID  int
	guesses map[int]*models.Guess
	eventOf func(participantID int) (int, bool)
}

func newFakeGuessRepo(participants *fakeParticipantRepo) *fakeGuessRepo {
	return &fakeGuessRepo{
		nextID:  1,
		guesses: make(map[int]*models.Guess),
		eventOf: activeEventResolver(participants),
	}
}

func (r *fakeGuessRepo) ReplaceForWine(ctx context.Context, exec repositories.SQLExecutor, participantID, wineNumber int, guesses []*models.Guess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, g := range r.guesses {
		if g.ParticipantID == participantID && g.WineNumber == wineNumber {
			delete(r.guesses, id)
		}
	}
	for _, g := range guesses {
		g.ID = r.nextID
		r.nextID++
		stored := *g
		r.guesses[g.ID] = &stored
	}
	return nil
}

func (r *fakeGuessRepo) ListByParticipant(ctx context.Context, participantID int) ([]*models.Guess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Guess, 0)
	for _, g := range r.guesses {
		if g.ParticipantID == participantID {
			copied := *g
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeGuessRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Guess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Guess, 0)
	for _, g := range r.guesses {
		if owner, ok := r.eventOf(g.ParticipantID); ok && owner == eventID {
			copied := *g
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeScoreRepo struct {
	mu     sync.Mutex
	nextID int
	scores map[int]*models.Score
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{nextID: 1, scores: make(map[int]*models.Score)}
}

func (r *fakeScoreRepo) Upsert(ctx context.Context, score *models.Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.scores {
		if existing.ParticipantID == score.ParticipantID && existing.WineNumber == score.WineNumber {
			existing.Rating = score.Rating
			score.ID = existing.ID
			return nil
		}
	}
	score.ID = r.nextID
	r.nextID++
	stored := *score
	r.scores[score.ID] = &stored
	return nil
}

func (r *fakeScoreRepo) ListByEvent(ctx context.Context, eventID int) ([]*models.Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Score, 0)
	for _, s := range r.scores {
		if s.EventID == eventID {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeUploader struct {
	mu       sync.Mutex
	uploads  []string
	deletes  []string
	baseURL  string
	uploadID int
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{baseURL: "https://cdn.test"}
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploadID++
	u.uploads = append(u.uploads, key)
	return &storage.UploadResult{
		Key:      key,
		Location: fmt.Sprintf("%s/%s", u.baseURL, key),
		ETag:     fmt.Sprintf("etag-%d", u.uploadID),
	}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deletes = append(u.deletes, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/%s", u.baseURL, key)
}
