package domain

import (
	"time"

	"github.com/google/uuid"
)

// AddressFields - сырые поля адреса от геокодера
type AddressFields struct {
	Road        string `json:"road,omitempty"`
	HouseNumber string `json:"house_number,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// SearchSuggestion - кандидат адреса из прямого геокодирования
type SearchSuggestion struct {
	DisplayName string        `json:"display_name"`
	Address     AddressFields `json:"address"`
	Point       GeoPoint      `json:"point"`
	Importance  float64       `json:"importance"`
}

// PostalCandidate - строка ответа сервиса почтовых индексов для улицы в городе.
// Complement может содержать диапазон номеров или правило чётности.
type PostalCandidate struct {
	PostalCode   string `json:"postal_code" db:"postal_code"`
	Street       string `json:"street" db:"street"`
	Complement   string `json:"complement" db:"complement"`
	Neighborhood string `json:"neighborhood" db:"neighborhood"`
	City         string `json:"city" db:"city"`
	State        string `json:"state" db:"state"`
}

// PendingResolution - адрес, ожидающий выбора пользователя между несколькими индексами
type PendingResolution struct {
	ID          uuid.UUID         `json:"id"`
	Point       GeoPoint          `json:"point"`
	Raw         AddressFields     `json:"raw"`
	HouseNumber string            `json:"house_number,omitempty"`
	Candidates  []PostalCandidate `json:"candidates"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ResolutionSource describes which data sources contributed to a ResolvedLocation.
type ResolutionSource string

const (
	SourcePostal     ResolutionSource = "postal"
	SourceGeocoder   ResolutionSource = "geocoder"
	SourceCoordinate ResolutionSource = "coordinate"
)

// ResolvedLocation - итоговый результат, единственное, что передаётся хосту
type ResolvedLocation struct {
	Point        GeoPoint         `json:"point"`
	Street       string           `json:"street"`
	HouseNumber  string           `json:"house_number"`
	Neighborhood string           `json:"neighborhood"`
	PostalCode   string           `json:"postal_code"`
	City         string           `json:"city,omitempty"`
	State        string           `json:"state,omitempty"`
	Source       ResolutionSource `json:"source"`
}
