package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/noterag/internal/model"
	"github.com/xxxsen/noterag/internal/pkg/response"
	"github.com/xxxsen/noterag/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Messages) == 0 {
		response.Error(c, http.StatusBadRequest, "No messages provided")
		return
	}
	result, err := h.chat.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
