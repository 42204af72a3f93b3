package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convo/auth"
	"convo/observability"
	"convo/repositories"
	"convo/services"
	"convo/storage"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testPassword = "Str0ng&Secret!x"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	req := require.New(t)
	gin.SetMode(gin.TestMode)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	log := slog.Default()
	blobs, err := storage.NewDiskStore(t.TempDir(), log)
	req.NoError(err)

	issuer := auth.NewTokenIssuer([]byte("api-test-key"), time.Hour)
	accounts := services.NewAuthService(repositories.NewUserRepository(db), issuer)
	stats := observability.NewDeliveryStats(log)

	delivery := services.NewDeliveryService(
		repositories.NewConversationRepository(db, log),
		repositories.NewMessageRepository(db, log),
		repositories.NewUnreadRepository(db, log),
		repositories.NewMessageIndex(writer, log),
		accounts,
		nil,
		stats,
		log,
	)

	return NewServer(delivery, accounts, accounts, blobs, stats, log).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	httpReq := httptest.NewRequest(method, path, reader)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httpReq)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// registerUser creates an account and returns (id, token).
func registerUser(t *testing.T, router *gin.Engine, email, name string) (string, string) {
	t.Helper()
	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     email,
		"full_name": name,
		"password":  testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func createConversation(t *testing.T, router *gin.Engine, token string, memberIDs ...string) string {
	t.Helper()
	rec, body := doJSON(t, router, http.MethodPost, "/api/conversations", token, gin.H{
		"member_ids": memberIDs,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}

func Test_Full_Messaging_Flow(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, aliceToken := registerUser(t, router, "alice@example.com", "Alice")
	bobID, bobToken := registerUser(t, router, "bob@example.com", "Bob")

	convID := createConversation(t, router, aliceToken, bobID)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/messages", aliceToken, gin.H{
		"conversation_id": convID,
		"content":         "hi",
		"type":            "text",
	})
	req.Equal(http.StatusCreated, rec.Code, rec.Body.String())

	// Bob sees the conversation with the last message resolved.
	rec, body := doJSON(t, router, http.MethodGet, "/api/conversations", bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	conversations := body["conversations"].([]any)
	req.Len(conversations, 1)
	first := conversations[0].(map[string]any)
	req.Equal(convID, first["id"])
	req.Equal("hi", first["last_message"].(map[string]any)["content"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/unread", bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.EqualValues(1, body["unread"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/conversations/"+convID+"/messages", bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	messages := body["messages"].([]any)
	req.Len(messages, 1)
	req.Equal("hi", messages[0].(map[string]any)["content"])

	rec, body = doJSON(t, router, http.MethodPost, "/api/conversations/"+convID+"/read", bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.EqualValues(1, body["cleared"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/unread?conversation_id="+convID, bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.EqualValues(0, body["unread"])
}

func Test_Login_And_Find_User(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	aliceID, _ := registerUser(t, router, "alice@example.com", "Alice")

	rec, body := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})
	req.Equal(http.StatusOK, rec.Code, rec.Body.String())
	token := body["token"].(string)
	req.Equal(aliceID, body["user"].(map[string]any)["id"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/users/find?email=alice@example.com", token, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(aliceID, body["id"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/users/find?email=nobody@example.com", token, nil)
	req.Equal(http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "Wr0ng&Password!",
	})
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_Auth_Required(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/conversations", "", nil)
	req.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/api/conversations", "garbage-token", nil)
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_Error_Status_Mapping(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, aliceToken := registerUser(t, router, "alice@example.com", "Alice")
	bobID, _ := registerUser(t, router, "bob@example.com", "Bob")
	_, eveToken := registerUser(t, router, "eve@example.com", "Eve")

	// Unknown conversation.
	rec, _ := doJSON(t, router, http.MethodGet, "/api/conversations/2c9a1bb4-082c-44a4-b1b1-47356a75a400/messages", aliceToken, nil)
	req.Equal(http.StatusNotFound, rec.Code)

	// Non-member access.
	convID := createConversation(t, router, aliceToken, bobID)
	rec, _ = doJSON(t, router, http.MethodGet, "/api/conversations/"+convID+"/messages", eveToken, nil)
	req.Equal(http.StatusForbidden, rec.Code)

	// Validation failures.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/messages", aliceToken, gin.H{
		"conversation_id": convID,
		"content":         "",
		"type":            "text",
	})
	req.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/conversations", aliceToken, gin.H{
		"is_group":   true,
		"member_ids": []string{bobID},
	})
	req.Equal(http.StatusBadRequest, rec.Code)

	// Duplicate registration.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     "alice@example.com",
		"full_name": "Alice Again",
		"password":  testPassword,
	})
	req.Equal(http.StatusConflict, rec.Code)
}

func Test_Blob_Upload_And_Download(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, aliceToken := registerUser(t, router, "alice@example.com", "Alice")
	bobID, _ := registerUser(t, router, "bob@example.com", "Bob")
	convID := createConversation(t, router, aliceToken, bobID)

	payload := []byte("attachment bytes")
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	req.NoError(form.WriteField("conversation_id", convID))
	part, err := form.CreateFormFile("file", "notes.txt")
	req.NoError(err)
	_, err = part.Write(payload)
	req.NoError(err)
	req.NoError(form.Close())

	httpReq := httptest.NewRequest(http.MethodPost, "/api/messages", &buf)
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+aliceToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httpReq)
	req.Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal("notes.txt", body["file_name"])
	req.EqualValues(len(payload), body["file_size"])
	req.Equal("file", body["data"].(map[string]any)["type"])

	fileURL := fmt.Sprintf("%v", body["file_url"])
	dlReq := httptest.NewRequest(http.MethodGet, fileURL, nil)
	dlReq.Header.Set("Authorization", "Bearer "+aliceToken)
	dlRec := httptest.NewRecorder()
	router.ServeHTTP(dlRec, dlReq)
	req.Equal(http.StatusOK, dlRec.Code)
	req.Equal(payload, dlRec.Body.Bytes())
}

func Test_Search_Endpoint(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	_, aliceToken := registerUser(t, router, "alice@example.com", "Alice")
	bobID, bobToken := registerUser(t, router, "bob@example.com", "Bob")
	convID := createConversation(t, router, aliceToken, bobID)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/messages", aliceToken, gin.H{
		"conversation_id": convID,
		"content":         "the invoices are ready",
		"type":            "text",
	})
	req.Equal(http.StatusCreated, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/api/conversations/"+convID+"/search?q=invoices", bobToken, nil)
	req.Equal(http.StatusOK, rec.Code)
	req.EqualValues(1, body["total"])
}

func Test_Stats_Endpoint(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/stats", "", nil)
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(body, "messages_sent")
}
