package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/repositories"
	"golang.org/x/sync/errgroup"
)

// ScoringService пересчитывает таблицу лидеров из хранилища при каждом вызове.
// Движок ничего не пишет и не кэширует: любое состояние выводится заново из
// актуальных ответов, догадок и оценок события.
//
// Ключ соединения догадок с ответами - номер вина, то есть presentation_order
// владельца, а не его ID. Догадка остаётся действительной, даже если за этой
// позицией подачи теперь закреплён другой участник. Это особенность игры, а
// не ошибка, и её нельзя "чинить" заменой на соединение по идентификатору.
type ScoringService struct {
	eventRepo       repositories.EventRepository
	participantRepo repositories.ParticipantRepository
	categoryRepo    repositories.CategoryRepository
	answerRepo      repositories.AnswerRepository
	guessRepo       repositories.GuessRepository
	scoreRepo       repositories.ScoreRepository
}

func NewScoringService(
	eventRepo repositories.EventRepository,
	participantRepo repositories.ParticipantRepository,
	categoryRepo repositories.CategoryRepository,
	answerRepo repositories.AnswerRepository,
	guessRepo repositories.GuessRepository,
	scoreRepo repositories.ScoreRepository,
) *ScoringService {
	return &ScoringService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		categoryRepo:    categoryRepo,
		answerRepo:      answerRepo,
		guessRepo:       guessRepo,
		scoreRepo:       scoreRepo,
	}
}

// tastingInputs - снимок всех входных таблиц одного события.
type tastingInputs struct {
	event        *models.Event
	participants []*models.Participant
	categories   []*models.Category
	answers      []*models.Answer
	guesses      []*models.Guess
	scores       []*models.Score
}

func (s *ScoringService) fetchInputs(ctx context.Context, eventID int) (*tastingInputs, error) {
	in := &tastingInputs{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		event, err := s.eventRepo.GetByID(gCtx, eventID)
		if err != nil {
			return mapEventRepoError(err)
		}
		in.event = event
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListActiveByEvent(gCtx, eventID)
		if err != nil {
			return fmt.Errorf("failed to fetch participants for event %d: %w", eventID, err)
		}
		in.participants = participants
		return nil
	})
	g.Go(func() error {
		categories, err := s.categoryRepo.ListByEvent(gCtx, eventID)
		if err != nil {
			return fmt.Errorf("failed to fetch categories for event %d: %w", eventID, err)
		}
		in.categories = categories
		return nil
	})
	g.Go(func() error {
		answers, err := s.answerRepo.ListByEvent(gCtx, eventID)
		if err != nil {
			return fmt.Errorf("failed to fetch answers for event %d: %w", eventID, err)
		}
		in.answers = answers
		return nil
	})
	g.Go(func() error {
		guesses, err := s.guessRepo.ListByEvent(gCtx, eventID)
		if err != nil {
			return fmt.Errorf("failed to fetch guesses for event %d: %w", eventID, err)
		}
		in.guesses = guesses
		return nil
	})
	g.Go(func() error {
		scores, err := s.scoreRepo.ListByEvent(gCtx, eventID)
		if err != nil {
			return fmt.Errorf("failed to fetch scores for event %d: %w", eventID, err)
		}
		in.scores = scores
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// ComputeState строит консолидированный снимок игры: таблицу лидеров, средние
// оценки вин и догадки в разрезе категорий.
func (s *ScoringService) ComputeState(ctx context.Context, eventID int) (*models.TastingState, error) {
	in, err := s.fetchInputs(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &models.TastingState{
		EventID:           eventID,
		CurrentWineNumber: in.event.CurrentWineNumber,
		Leaderboard:       computeLeaderboard(in),
		WineAverages:      computeWineAverages(in.scores),
		CategoryGuesses:   computeCategoryGuesses(in),
	}, nil
}

// computeLeaderboard выполняет перекрёстное сравнение догадок каждого участника
// с ответами владельцев вин.
//
// Толерантность к незавершённой дегустации: догадка на вино, у владельца
// которого ещё нет ответа в этой категории, увеличивает total_guesses, но не
// может быть правильной; догадка на номер вина, за которым не закреплён ни один
// активный участник, в подсчёт не попадает вовсе. Ни одна некорректная строка
// не прерывает вычисление.
func computeLeaderboard(in *tastingInputs) []models.LeaderboardEntry {
	difficultyByCategory := make(map[int]int, len(in.categories))
	for _, c := range in.categories {
		difficultyByCategory[c.ID] = c.Difficulty
	}

	// Ответы владельца, ключуемые позицией подачи его вина. Запись заводится
	// для каждого активного участника: владелец без единого ответа - это всё
	// ещё существующее вино, догадки на него учитываются в total_guesses.
	answersByOrder := make(map[int]map[int]string, len(in.participants))
	ownerByID := make(map[int]*models.Participant, len(in.participants))
	for _, p := range in.participants {
		ownerByID[p.ID] = p
		answersByOrder[p.PresentationOrder] = make(map[int]string)
	}
	for _, a := range in.answers {
		owner, ok := ownerByID[a.ParticipantID]
		if !ok {
			continue
		}
		answersByOrder[owner.PresentationOrder][a.CategoryID] = a.Value
	}

	guessesByGuesser := make(map[int][]*models.Guess)
	for _, g := range in.guesses {
		guessesByGuesser[g.ParticipantID] = append(guessesByGuesser[g.ParticipantID], g)
	}

	entries := make([]models.LeaderboardEntry, 0, len(in.participants))
	for _, p := range in.participants {
		entry := models.LeaderboardEntry{
			ParticipantID:     p.ID,
			Name:              p.Name,
			PresentationOrder: p.PresentationOrder,
		}

		for _, g := range guessesByGuesser[p.ID] {
			answers, ok := answersByOrder[g.WineNumber]
			if !ok {
				// Вино без владельца среди активных участников: нулевой вклад.
				continue
			}
			entry.TotalGuesses++
			answer, ok := answers[g.CategoryID]
			if ok && strings.EqualFold(g.Value, answer) {
				entry.CorrectGuesses++
				entry.TotalPoints += difficultyByCategory[g.CategoryID]
			}
		}

		entry.Accuracy = formatAccuracy(entry.CorrectGuesses, entry.TotalGuesses)
		entries = append(entries, entry)
	}

	// Тай-брейк: по очкам убыванием, при равенстве - по порядку подачи.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].PresentationOrder < entries[j].PresentationOrder
	})
	return entries
}

func computeWineAverages(scores []*models.Score) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, s := range scores {
		sums[s.WineNumber] += s.Rating
		counts[s.WineNumber]++
	}

	averages := make(map[int]float64, len(sums))
	for wine, sum := range sums {
		averages[wine] = roundToOneDecimal(sum / float64(counts[wine]))
	}
	return averages
}

// computeCategoryGuesses - транспонированный взгляд на таблицу догадок: для
// каждой категории все догадки, упорядоченные по номеру вина, затем по порядку
// угадывающего. Используется организатором для обзора, не для подсчёта очков.
func computeCategoryGuesses(in *tastingInputs) []models.CategoryGuessView {
	participantByID := make(map[int]*models.Participant, len(in.participants))
	for _, p := range in.participants {
		participantByID[p.ID] = p
	}

	views := make([]models.CategoryGuessView, 0, len(in.categories))
	for _, c := range in.categories {
		view := models.CategoryGuessView{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Difficulty:   c.Difficulty,
			Guesses:      make([]models.CategoryGuess, 0),
		}

		for _, g := range in.guesses {
			if g.CategoryID != c.ID {
				continue
			}
			guesser, ok := participantByID[g.ParticipantID]
			if !ok {
				continue
			}
			view.Guesses = append(view.Guesses, models.CategoryGuess{
				WineNumber:   g.WineNumber,
				GuesserID:    guesser.ID,
				GuesserName:  guesser.Name,
				GuesserOrder: guesser.PresentationOrder,
				Value:        g.Value,
			})
		}

		sort.SliceStable(view.Guesses, func(i, j int) bool {
			if view.Guesses[i].WineNumber != view.Guesses[j].WineNumber {
				return view.Guesses[i].WineNumber < view.Guesses[j].WineNumber
			}
			return view.Guesses[i].GuesserOrder < view.Guesses[j].GuesserOrder
		})
		views = append(views, view)
	}
	return views
}
