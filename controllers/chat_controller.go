package controllers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"motoshop/middlewares"
	"motoshop/mongodb"
)

const chatPageSize = 100

// ChatStore persists support-chat messages in the document database.
type ChatStore interface {
	InsertChatMessage(ctx context.Context, msg *mongodb.ChatMessage) error
	ChatMessages(ctx context.Context, userID string, limit int64) ([]mongodb.ChatMessage, error)
}

type ChatController struct {
	Chats ChatStore
}

func NewChatController(chats ChatStore) *ChatController {
	return &ChatController{Chats: chats}
}

func (cc *ChatController) PostMessage(c *gin.Context) {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := &mongodb.ChatMessage{
		UserID:     userID,
		SenderRole: middlewares.RoleOf(c),
		Content:    req.Content,
	}
	if err := cc.Chats.InsertChatMessage(c.Request.Context(), msg); err != nil {
		log.Printf("Error saving chat message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns the caller's conversation; admins see every
// conversation.
func (cc *ChatController) GetMessages(c *gin.Context) {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	filterUser := userID
	if middlewares.RoleOf(c).CanManage() {
		filterUser = ""
	}

	msgs, err := cc.Chats.ChatMessages(c.Request.Context(), filterUser, chatPageSize)
	if err != nil {
		log.Printf("Error fetching chat messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching messages"})
		return
	}

	c.JSON(http.StatusOK, msgs)
}
