package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/metrics"
)

// Navigator - часть контроллера камеры, которую использует разрешение адресов
type Navigator interface {
	// FlyTo перелетает к точке с фиксированным близким зумом
	FlyTo(point domain.GeoPoint) ViewDecision
	// SuppressNext игнорирует позицию следующего внешнего обновления (эхо клика)
	SuppressNext()
}

// AddressCallbacks - подписчики результатов; вызываются вне блокировок, по порядку
type AddressCallbacks struct {
	OnResolved func(domain.ResolvedLocation)
	OnPending  func(domain.PendingResolution)
}

// AddressResolutionUseCase превращает действие пользователя (выбор подсказки, клик по карте,
// программный поиск) в ResolvedLocation, сверяя геокодер со справочником почтовых индексов.
type AddressResolutionUseCase struct {
	geocoder  repository.GeocodingRepository
	postal    repository.PostalCodeRepository
	navigator Navigator
	input     *SearchInput
	logger    *zap.Logger

	resolved *notifier[domain.ResolvedLocation]
	pendings *notifier[domain.PendingResolution]

	mu           sync.Mutex
	city         string
	state        string
	seq          uint64
	pending      *domain.PendingResolution
	lastResolved *domain.ResolvedLocation
}

// NewAddressResolutionUseCase создает новый экземпляр usecase
func NewAddressResolutionUseCase(
	geocoder repository.GeocodingRepository,
	postal repository.PostalCodeRepository,
	navigator Navigator,
	input *SearchInput,
	callbacks AddressCallbacks,
	logger *zap.Logger,
) *AddressResolutionUseCase {
	uc := &AddressResolutionUseCase{
		geocoder:  geocoder,
		postal:    postal,
		navigator: navigator,
		input:     input,
		logger:    logger,
	}
	if callbacks.OnResolved != nil {
		uc.resolved = newNotifier(callbacks.OnResolved)
	}
	if callbacks.OnPending != nil {
		uc.pendings = newNotifier(callbacks.OnPending)
	}
	return uc
}

func (uc *AddressResolutionUseCase) Close() {
	uc.resolved.Close()
	uc.pendings.Close()
}

// SetRegion задает город и штат для поиска и для сверки адресов без города
func (uc *AddressResolutionUseCase) SetRegion(city, state string) {
	uc.mu.Lock()
	uc.city = strings.TrimSpace(city)
	uc.state = strings.TrimSpace(state)
	uc.mu.Unlock()
	uc.input.SetRegion(city, state)
}

// Input returns the search field driving this pipeline.
func (uc *AddressResolutionUseCase) Input() *SearchInput {
	return uc.input
}

// nextAction начинает новое действие: предыдущее ожидающее разрешение заменяется,
// результаты незавершенных действий будут отброшены
func (uc *AddressResolutionUseCase) nextAction() uint64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.seq++
	uc.pending = nil
	return uc.seq
}

// SelectSuggestion - пользователь выбрал подсказку из списка.
// houseNumber - номер, выбранный явно (может быть пустым).
func (uc *AddressResolutionUseCase) SelectSuggestion(ctx context.Context, index int, houseNumber string) (*domain.ResolvedLocation, error) {
	s, ok := uc.input.Suggestion(index)
	if !ok {
		return nil, apperrors.ErrInvalidSuggestion
	}
	typed := uc.input.Text()

	seq := uc.nextAction()
	uc.navigator.FlyTo(s.Point)
	uc.input.Fill(s.DisplayName)

	house := pickHouseNumber(houseNumber, ExtractHouseNumber(typed), s.Address.HouseNumber)
	return uc.reconcile(ctx, seq, s.Address, s.Point, house)
}

// Click - клик по карте: обратное геокодирование точки.
// При сбое геокодера результатом становится точка без адреса.
func (uc *AddressResolutionUseCase) Click(ctx context.Context, point domain.GeoPoint) (*domain.ResolvedLocation, error) {
	if !point.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}

	seq := uc.nextAction()
	// хост вернет координаты маркера обратно, камера не должна прыгать
	uc.navigator.SuppressNext()

	raw, err := uc.geocoder.Reverse(ctx, point)
	if err != nil {
		uc.logger.Warn("Reverse geocoding failed, using bare coordinate",
			zap.Float64("lat", point.Lat),
			zap.Float64("lng", point.Lng),
			zap.Error(err))
		loc := domain.ResolvedLocation{Point: point, Source: domain.SourceCoordinate}
		if !uc.apply(seq, loc) {
			return nil, nil
		}
		return &loc, nil
	}

	if text := clickLabel(raw); text != "" {
		uc.input.Fill(text)
	}
	return uc.reconcile(ctx, seq, *raw, point, raw.HouseNumber)
}

// SearchAndCenter - программный поиск: одна лучшая подсказка, перелет камеры и та же сверка,
// что и при ручном выборе
func (uc *AddressResolutionUseCase) SearchAndCenter(ctx context.Context, address string) (*domain.ResolvedLocation, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.ErrAddressNotFound
	}

	seq := uc.nextAction()
	results, err := uc.geocoder.Search(ctx, address, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to search address: %w", err)
	}
	if len(results) == 0 || !results[0].Point.Valid() {
		return nil, apperrors.ErrAddressNotFound.WithDetails(map[string]interface{}{"address": address})
	}

	best := results[0]
	uc.navigator.FlyTo(best.Point)
	uc.input.Fill(best.DisplayName)

	house := pickHouseNumber("", ExtractHouseNumber(address), best.Address.HouseNumber)
	return uc.reconcile(ctx, seq, best.Address, best.Point, house)
}

// Reconcile сверяет адрес геокодера со справочником почтовых индексов как новое действие
func (uc *AddressResolutionUseCase) Reconcile(ctx context.Context, raw domain.AddressFields, point domain.GeoPoint, houseNumber string) (*domain.ResolvedLocation, error) {
	seq := uc.nextAction()
	return uc.reconcile(ctx, seq, raw, point, pickHouseNumber(houseNumber, raw.HouseNumber))
}

func (uc *AddressResolutionUseCase) reconcile(ctx context.Context, seq uint64, raw domain.AddressFields, point domain.GeoPoint, house string) (*domain.ResolvedLocation, error) {
	uc.mu.Lock()
	if raw.City == "" {
		raw.City = uc.city
	}
	if raw.State == "" {
		raw.State = uc.state
	}
	uc.mu.Unlock()

	if raw.Road == "" || raw.City == "" {
		return uc.finish(seq, "as_is", finalize(raw, point, house, nil))
	}

	candidates, err := uc.postal.Lookup(ctx, raw.State, raw.City, raw.Road)
	if err != nil {
		uc.logger.Warn("Postal lookup failed, using geocoded address",
			zap.String("street", raw.Road),
			zap.String("city", raw.City),
			zap.Error(err))
		return uc.finish(seq, "as_is", finalize(raw, point, house, nil))
	}

	distinct := DistinctPostalCodes(candidates)
	switch len(distinct) {
	case 0:
		return uc.finish(seq, "as_is", finalize(raw, point, house, nil))
	case 1:
		return uc.finish(seq, "merged", finalize(raw, point, house, &distinct[0]))
	}

	if c, ok := ResolveByHouseNumber(candidates, house); ok {
		uc.logger.Debug("Postal code resolved by house number",
			zap.String("house_number", house),
			zap.String("postal_code", c.PostalCode))
		return uc.finish(seq, "auto_resolved", finalize(raw, point, house, &c))
	}

	pending := domain.PendingResolution{
		ID:          uuid.New(),
		Point:       point,
		Raw:         raw,
		HouseNumber: house,
		Candidates:  distinct,
		CreatedAt:   time.Now(),
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.seq != seq {
		return nil, nil
	}
	uc.pending = &pending
	uc.pendings.Publish(pending)
	observeReconcile("pending")

	uc.logger.Info("Address awaits postal code selection",
		zap.String("street", raw.Road),
		zap.Int("candidates", len(distinct)))
	return nil, nil
}

func (uc *AddressResolutionUseCase) finish(seq uint64, outcome string, loc domain.ResolvedLocation) (*domain.ResolvedLocation, error) {
	if !uc.apply(seq, loc) {
		return nil, nil
	}
	observeReconcile(outcome)
	return &loc, nil
}

// apply публикует результат, только если за это время не началось новое действие
func (uc *AddressResolutionUseCase) apply(seq uint64, loc domain.ResolvedLocation) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.seq != seq {
		uc.logger.Debug("Dropping stale resolution result")
		return false
	}
	uc.emitLocked(loc)
	return true
}

func (uc *AddressResolutionUseCase) emitLocked(loc domain.ResolvedLocation) {
	uc.lastResolved = &loc
	uc.resolved.Publish(loc)
}

// SelectCandidate - хост выбрал индекс из списка ожидающего разрешения
func (uc *AddressResolutionUseCase) SelectCandidate(postalCode string) (*domain.ResolvedLocation, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.pending == nil {
		return nil, apperrors.ErrNoPendingResolution
	}
	for _, c := range uc.pending.Candidates {
		if c.PostalCode != postalCode {
			continue
		}
		loc := finalize(uc.pending.Raw, uc.pending.Point, uc.pending.HouseNumber, &c)
		uc.pending = nil
		uc.emitLocked(loc)
		return &loc, nil
	}
	return nil, apperrors.ErrInvalidCandidate.WithDetails(map[string]interface{}{"postal_code": postalCode})
}

// CancelPending - хост отказался выбирать индекс; используется адрес геокодера
func (uc *AddressResolutionUseCase) CancelPending() (*domain.ResolvedLocation, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.pending == nil {
		return nil, apperrors.ErrNoPendingResolution
	}
	loc := finalize(uc.pending.Raw, uc.pending.Point, uc.pending.HouseNumber, nil)
	uc.pending = nil
	uc.emitLocked(loc)
	return &loc, nil
}

// Pending returns a copy of the open resolution, if any.
func (uc *AddressResolutionUseCase) Pending() *domain.PendingResolution {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.pending == nil {
		return nil
	}
	p := *uc.pending
	p.Candidates = append([]domain.PostalCandidate(nil), uc.pending.Candidates...)
	return &p
}

func (uc *AddressResolutionUseCase) LastResolved() *domain.ResolvedLocation {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.lastResolved == nil {
		return nil
	}
	loc := *uc.lastResolved
	return &loc
}

// finalize собирает итоговый адрес. Поля почтового справочника важнее полей геокодера.
func finalize(raw domain.AddressFields, point domain.GeoPoint, house string, postal *domain.PostalCandidate) domain.ResolvedLocation {
	loc := domain.ResolvedLocation{
		Point:        point,
		Street:       raw.Road,
		HouseNumber:  house,
		Neighborhood: raw.Suburb,
		PostalCode:   raw.PostalCode,
		City:         raw.City,
		State:        raw.State,
		Source:       domain.SourceGeocoder,
	}

	if postal != nil {
		loc.Source = domain.SourcePostal
		loc.PostalCode = postal.PostalCode
		if postal.Street != "" {
			loc.Street = postal.Street
		}
		if postal.Neighborhood != "" {
			loc.Neighborhood = postal.Neighborhood
		}
		if postal.City != "" {
			loc.City = postal.City
		}
		if postal.State != "" {
			loc.State = postal.State
		}
	}

	if loc.Street == "" && loc.PostalCode == "" && loc.Neighborhood == "" && loc.HouseNumber == "" {
		loc.Source = domain.SourceCoordinate
	}
	return loc
}

// pickHouseNumber returns the first non-empty number in order of precedence.
func pickHouseNumber(numbers ...string) string {
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return ""
}

func clickLabel(raw *domain.AddressFields) string {
	if raw.Road == "" {
		return raw.DisplayName
	}
	if raw.HouseNumber != "" {
		return raw.Road + ", " + raw.HouseNumber
	}
	return raw.Road
}

func observeReconcile(outcome string) {
	metrics.ReconcileOutcomeTotal.WithLabelValues(outcome).Inc()
}
