package usecase

import "errors"

// Ошибки, которые различают причины завершения операции. Отмена и отказ ошибками для пользователя не являются.
var (
	ErrOffline   = errors.New("network unavailable")
	ErrDeclined  = errors.New("download declined")
	ErrCancelled = errors.New("operation cancelled")
)
