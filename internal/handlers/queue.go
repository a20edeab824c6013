package handlers

import (
	"errors"
	"net/http"

	"chat_queue/internal/auth"
	"chat_queue/internal/queue"
	"chat_queue/internal/response"
	apperrors "chat_queue/pkg/errors"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	engine *queue.Engine
}

func NewQueueHandler(engine *queue.Engine) *QueueHandler {
	return &QueueHandler{engine: engine}
}

// InitiateChat обрабатывает запрос на поиск собеседника
// @Summary		Поиск собеседника
// @Description	Соединяет пользователя с тем, кто дольше всех ждёт в очереди, или ставит его в очередь
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SwaggerQueueResult	"paired с chatId или queued с позицией"
// @Failure		400	{object}	response.ErrorResponse		"Пользователь уже в очереди (ALREADY_IN_QUEUE)"
// @Failure		401	{object}	response.ErrorResponse		"Нет авторизации (NOT_AUTHORIZED)"
// @Failure		503	{object}	response.ErrorResponse		"Хранилище очереди недоступно (STORE_UNAVAILABLE)"
// @Router			/api/queue/initiate [post]
func (h *QueueHandler) InitiateChat(c *gin.Context) {
	res, err := h.engine.InitiateChat(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DequeueUser обрабатывает запрос на выход из очереди
// @Summary		Выход из очереди
// @Description	Удаляет пользователя из очереди и уведомляет остальных о новых позициях
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SwaggerQueueResult	"left или not_in_queue, позиция 0"
// @Failure		401	{object}	response.ErrorResponse		"Нет авторизации (NOT_AUTHORIZED)"
// @Failure		503	{object}	response.ErrorResponse		"Хранилище очереди недоступно (STORE_UNAVAILABLE)"
// @Router			/api/queue/dequeue [post]
func (h *QueueHandler) DequeueUser(c *gin.Context) {
	res, err := h.engine.DequeueUser(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// QueuePosition возвращает текущую позицию пользователя
// @Summary		Позиция в очереди
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	response.SwaggerQueueResult	"queued с позицией или not_in_queue"
// @Failure		401	{object}	response.ErrorResponse		"Нет авторизации (NOT_AUTHORIZED)"
// @Failure		503	{object}	response.ErrorResponse		"Хранилище очереди недоступно (STORE_UNAVAILABLE)"
// @Router			/api/queue/position [get]
func (h *QueueHandler) QueuePosition(c *gin.Context) {
	res, err := h.engine.QueuePosition(c.Request.Context(), c.GetString(auth.ContextUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListQueue возвращает всех ожидающих
// @Summary		Содержимое очереди
// @Description	Снимок очереди, упорядоченный по времени входа
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		response.QueueEntryResponse
// @Failure		503	{object}	response.ErrorResponse	"Хранилище очереди недоступно (STORE_UNAVAILABLE)"
// @Router			/api/queue [get]
func (h *QueueHandler) ListQueue(c *gin.Context) {
	entries, err := h.engine.Queue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]response.QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, response.QueueEntryResponse{ID: e.ID, JoinedAt: e.JoinedAt, UserID: e.UserID})
	}
	c.JSON(http.StatusOK, out)
}

func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    string(apperrors.CodeInternal),
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	switch appErr.Code {
	case apperrors.CodeNotAuthorized:
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    string(appErr.Code),
			Message: "Требуется авторизация",
		})
	case apperrors.CodeAlreadyInQueue:
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    string(appErr.Code),
			Message: "Пользователь уже состоит в очереди",
		})
	case apperrors.CodeStoreUnavailable:
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
			Code:    string(appErr.Code),
			Message: "Очередь временно недоступна, повторите запрос",
		})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    string(apperrors.CodeInternal),
			Message: "Внутренняя ошибка сервера",
		})
	}
}
