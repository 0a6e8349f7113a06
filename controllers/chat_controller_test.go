package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"motoshop/middlewares"
	"motoshop/models"
	"motoshop/mongodb"
)

// fakeChatStore mirrors the store contract: inserting assigns the
// generated id back onto the message.
type fakeChatStore struct {
	msgs []mongodb.ChatMessage
}

func (f *fakeChatStore) InsertChatMessage(ctx context.Context, msg *mongodb.ChatMessage) error {
	msg.ID = primitive.NewObjectID()
	f.msgs = append(f.msgs, *msg)
	return nil
}

func (f *fakeChatStore) ChatMessages(ctx context.Context, userID string, limit int64) ([]mongodb.ChatMessage, error) {
	var out []mongodb.ChatMessage
	for _, m := range f.msgs {
		if userID == "" || m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func chatRouter(cc *ChatController, userID string, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	seed := func(c *gin.Context) {
		c.Set(middlewares.ContextUserID, userID)
		c.Set(middlewares.ContextRole, role)
	}
	r.POST("/api/chat/messages", seed, cc.PostMessage)
	r.GET("/api/chat/messages", seed, cc.GetMessages)
	return r
}

func TestPostMessageReturnsAssignedID(t *testing.T) {
	store := &fakeChatStore{}
	r := chatRouter(NewChatController(store), "user-1", models.RoleCustomer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages",
		strings.NewReader(`{"content": "where is my order?"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var msg mongodb.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.False(t, msg.ID.IsZero())
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, models.RoleCustomer, msg.SenderRole)
	assert.Equal(t, "where is my order?", msg.Content)
}

func TestPostMessageRequiresContent(t *testing.T) {
	r := chatRouter(NewChatController(&fakeChatStore{}), "user-1", models.RoleCustomer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesScopedByRole(t *testing.T) {
	store := &fakeChatStore{
		msgs: []mongodb.ChatMessage{
			{ID: primitive.NewObjectID(), UserID: "user-1", Content: "hello"},
			{ID: primitive.NewObjectID(), UserID: "user-2", Content: "hi there"},
		},
	}

	r := chatRouter(NewChatController(store), "user-1", models.RoleCustomer)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var msgs []mongodb.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "user-1", msgs[0].UserID)

	r = chatRouter(NewChatController(store), "admin-1", models.RoleAdmin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)
}
