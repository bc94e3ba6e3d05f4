package models

// SuccessEnvelope - формат успешного ответа.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorEnvelope - формат ответа с ошибкой.
type ErrorEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Errors  map[string]any `json:"errors"`
}

// Page - параметры постраничной выборки.
type Page struct {
	Limit  int
	Offset int
}
