package response

import "time"

// ErrorResponse представляет ответ с ошибкой API
type ErrorResponse struct {
	// Код ошибки для программной обработки
	// example: ALREADY_IN_QUEUE
	Code string `json:"code"`

	// Человекочитаемое сообщение об ошибке
	// example: Пользователь уже в очереди
	Message string `json:"message"`

	// Дополнительные детали об ошибке (опционально)
	Details string `json:"details,omitempty"`
}

// SwaggerQueueResult описывает ответ initiate/dequeue/position для swagger.
// status: paired | queued | left | not_in_queue
type SwaggerQueueResult struct {
	Status   string `json:"status" example:"queued"`
	ChatID   string `json:"chatId,omitempty" example:"4b9f6d0e-6a53-4c0e-9a8e-2f1d3c4b5a69"`
	Position int    `json:"position,omitempty" example:"1"`
}

// QueueEntryResponse — запись очереди в листинге.
type QueueEntryResponse struct {
	ID       uint      `json:"id" example:"7"`
	JoinedAt time.Time `json:"joinedAt"`
	UserID   string    `json:"userId" example:"65f1c0a2"`
}
