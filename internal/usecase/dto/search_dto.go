package dto

import "github.com/geopin-service/internal/domain"

// SearchInputRequest - текст, набранный пользователем
type SearchInputRequest struct {
	Text string `json:"text" validate:"max=200"`
}

// SelectSuggestionRequest - выбор подсказки; house_number - явно выбранный номер дома
type SelectSuggestionRequest struct {
	Index       int    `json:"index" validate:"min=0,max=50"`
	HouseNumber string `json:"house_number,omitempty" validate:"max=20"`
}

// SearchAndCenterRequest - программный поиск адреса
type SearchAndCenterRequest struct {
	Address string `json:"address" validate:"required,min=1,max=300"`
}

// SelectCandidateRequest - выбор почтового индекса из ожидающего разрешения
type SelectCandidateRequest struct {
	PostalCode string `json:"postal_code" validate:"required,max=16"`
}

// SuggestionsResponse - текущие подсказки поля ввода
type SuggestionsResponse struct {
	Query       string                    `json:"query"`
	Mode        string                    `json:"mode"`
	Suggestions []domain.SearchSuggestion `json:"suggestions"`
}

// ResolutionResponse - итог действия: адрес либо ожидание выбора индекса
type ResolutionResponse struct {
	Location *domain.ResolvedLocation  `json:"location,omitempty"`
	Pending  *domain.PendingResolution `json:"pending,omitempty"`
}
