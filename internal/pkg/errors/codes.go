package errors

import "net/http"

var (
	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidTileCoordinates = New(
		"INVALID_TILE_COORDINATES",
		"Invalid tile coordinates",
		http.StatusBadRequest,
	)

	ErrInvalidTileStyle = New(
		"INVALID_TILE_STYLE",
		"Unknown tile style",
		http.StatusBadRequest,
	)

	ErrTileNotFound = New(
		"TILE_NOT_FOUND",
		"Tile is not available offline",
		http.StatusNotFound,
	)

	ErrSessionNotFound = New(
		"SESSION_NOT_FOUND",
		"Map session not found",
		http.StatusNotFound,
	)

	ErrOfflineUnavailable = New(
		"OFFLINE_UNAVAILABLE",
		"Offline download requires network connectivity",
		http.StatusServiceUnavailable,
	)

	ErrDownloadInProgress = New(
		"DOWNLOAD_IN_PROGRESS",
		"An offline download is already running",
		http.StatusConflict,
	)

	ErrNoConfirmationPending = New(
		"NO_CONFIRMATION_PENDING",
		"No download is waiting for confirmation",
		http.StatusConflict,
	)

	ErrAddressNotFound = New(
		"ADDRESS_NOT_FOUND",
		"Address not found",
		http.StatusNotFound,
	)

	ErrNoPendingResolution = New(
		"NO_PENDING_RESOLUTION",
		"No address is waiting for postal code selection",
		http.StatusConflict,
	)

	ErrInvalidCandidate = New(
		"INVALID_CANDIDATE",
		"Postal code is not one of the pending candidates",
		http.StatusBadRequest,
	)

	ErrInvalidSuggestion = New(
		"INVALID_SUGGESTION",
		"Suggestion index is out of range",
		http.StatusBadRequest,
	)

	ErrRouteNotFound = New(
		"NOT_FOUND",
		"Route not found",
		http.StatusNotFound,
	)

	ErrMethodNotAllowed = New(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		http.StatusMethodNotAllowed,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
