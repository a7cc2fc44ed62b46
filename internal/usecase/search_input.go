package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	"github.com/geopin-service/internal/pkg/utils"
)

// InputMode - состояние поля ввода адреса
type InputMode int

const (
	// InputIdle - нет отложенного поиска
	InputIdle InputMode = iota
	// InputDebouncing - ждём паузы в наборе текста
	InputDebouncing
	// InputSuppressed - текст записан программно; его эхо не запускает поиск
	InputSuppressed
)

func (m InputMode) String() string {
	switch m {
	case InputDebouncing:
		return "debouncing"
	case InputSuppressed:
		return "suppressed"
	default:
		return "idle"
	}
}

func (m InputMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type SearchOptions struct {
	Debounce  time.Duration
	MinLength int
	Limit     int
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Debounce: 800 * time.Millisecond, MinLength: 3, Limit: 5}
}

func SearchOptionsFromConfig(cfg *config.SearchConfig) SearchOptions {
	return SearchOptions{Debounce: cfg.Debounce, MinLength: cfg.MinLength, Limit: cfg.Limit}
}

// SearchInput - поле ввода с задержкой поиска.
// Каждое нажатие отменяет предыдущий таймер; запрос уходит только после паузы Debounce
// и только если текст не короче MinLength символов.
type SearchInput struct {
	geocoder repository.GeocodingRepository
	opts     SearchOptions
	logger   *zap.Logger
	results  *notifier[[]domain.SearchSuggestion]

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	text        string
	city        string
	state       string
	mode        InputMode
	gen         uint64
	fillGen     uint64
	dispatchSeq uint64
	lastApplied uint64
	timer       *time.Timer
	suggestions []domain.SearchSuggestion
}

// NewSearchInput создает поле ввода. onSuggestions вызывается при каждом изменении списка подсказок.
func NewSearchInput(geocoder repository.GeocodingRepository, opts SearchOptions, onSuggestions func([]domain.SearchSuggestion), logger *zap.Logger) *SearchInput {
	if opts.MinLength <= 0 {
		opts.MinLength = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SearchInput{
		geocoder: geocoder,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	if onSuggestions != nil {
		s.results = newNotifier(onSuggestions)
	}
	return s
}

// Close stops the pending timer and aborts an in-flight search.
func (s *SearchInput) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	s.cancel()
	s.results.Close()
}

// SetRegion задает город и штат, которыми дополняется запрос
func (s *SearchInput) SetRegion(city, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = strings.TrimSpace(city)
	s.state = strings.TrimSpace(state)
}

// Type - пользователь изменил текст поля
func (s *SearchInput) Type(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == InputSuppressed {
		s.mode = InputIdle
		if text == s.text {
			return
		}
	}

	s.text = text
	s.gen++
	s.stopTimerLocked()
	s.setSuggestionsLocked(nil)

	if utils.RuneLen(strings.TrimSpace(text)) < s.opts.MinLength {
		s.mode = InputIdle
		return
	}

	s.mode = InputDebouncing
	gen := s.gen
	s.timer = time.AfterFunc(s.opts.Debounce, func() {
		s.fire(gen)
	})
}

// Fill записывает текст программно: повторного поиска по нему не будет,
// а результаты уже отправленных запросов отбрасываются.
func (s *SearchInput) Fill(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fillGen++
	s.gen++
	s.stopTimerLocked()
	s.text = text
	s.mode = InputSuppressed
	s.setSuggestionsLocked(nil)
}

func (s *SearchInput) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.mode != InputDebouncing {
		s.mu.Unlock()
		return
	}
	s.mode = InputIdle
	s.timer = nil
	s.dispatchSeq++
	seq := s.dispatchSeq
	fillGen := s.fillGen
	query := s.scopedLocked()
	s.mu.Unlock()

	results, err := s.geocoder.Search(s.ctx, query, s.opts.Limit)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn("Address search failed", zap.String("query", query), zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// более новый запрос уже применён или поле заполнено программно
	if fillGen != s.fillGen || seq <= s.lastApplied {
		s.logger.Debug("Dropping stale search results", zap.String("query", query))
		return
	}
	s.lastApplied = seq
	s.setSuggestionsLocked(results)
}

func (s *SearchInput) scopedLocked() string {
	parts := []string{strings.TrimSpace(s.text)}
	present := make(map[string]struct{})
	for _, segment := range strings.Split(s.text, ",") {
		present[utils.FoldText(segment)] = struct{}{}
	}
	for _, scope := range []string{s.city, s.state} {
		if scope == "" {
			continue
		}
		if _, ok := present[utils.FoldText(scope)]; !ok {
			parts = append(parts, scope)
		}
	}
	return strings.Join(parts, ", ")
}

// ScopedQuery returns the text as it would be sent to the geocoder.
func (s *SearchInput) ScopedQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopedLocked()
}

func (s *SearchInput) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *SearchInput) setSuggestionsLocked(results []domain.SearchSuggestion) {
	if len(results) == 0 && len(s.suggestions) == 0 {
		s.suggestions = nil
		return
	}
	s.suggestions = results
	s.results.Publish(append([]domain.SearchSuggestion(nil), results...))
}

func (s *SearchInput) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *SearchInput) Mode() InputMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Suggestions returns a copy of the current list.
func (s *SearchInput) Suggestions() []domain.SearchSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SearchSuggestion(nil), s.suggestions...)
}

// Suggestion returns the i-th suggestion of the current list.
func (s *SearchInput) Suggestion(i int) (domain.SearchSuggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.suggestions) {
		return domain.SearchSuggestion{}, false
	}
	return s.suggestions[i], true
}
