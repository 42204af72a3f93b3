package e2e

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testMessagingSuite struct {
	BaseHTTPSuite
}

func TestMessagingSuite(t *testing.T) {
	suite.Run(t, &testMessagingSuite{})
}

func (s *testMessagingSuite) TestFullMessagingFlow() {
	// Unique emails so the scenario can rerun against a dirty server.
	run := uuid.New().String()[:8]
	aliceEmail := fmt.Sprintf("alice-%s@example.com", run)
	bobEmail := fmt.Sprintf("bob-%s@example.com", run)
	password := "Str0ng&Secret!x"

	var aliceToken, bobToken, bobID, convID string

	s.Run("Step 0: Register both participants", func() {
		s.Step("Registering accounts")

		code, body := s.Call(http.MethodPost, "/api/auth/register", "", map[string]any{
			"email": aliceEmail, "full_name": "Alice", "password": password,
		})
		s.Require().Equal(http.StatusCreated, code)
		aliceToken = body["token"].(string)

		code, body = s.Call(http.MethodPost, "/api/auth/register", "", map[string]any{
			"email": bobEmail, "full_name": "Bob", "password": password,
		})
		s.Require().Equal(http.StatusCreated, code)
		bobToken = body["token"].(string)
		bobID = body["user"].(map[string]any)["id"].(string)
	})

	s.Run("Step 1: Alice opens a conversation with Bob", func() {
		s.Step("Creating conversation")

		code, body := s.Call(http.MethodPost, "/api/conversations", aliceToken, map[string]any{
			"member_ids": []string{bobID},
		})
		s.Require().Equal(http.StatusCreated, code)
		convID = body["id"].(string)
		s.Require().NotEmpty(convID)
	})

	s.Run("Step 2: Alice sends a message, Bob sees it unread", func() {
		s.Step("Sending and checking unread state")

		code, _ := s.Call(http.MethodPost, "/api/messages", aliceToken, map[string]any{
			"conversation_id": convID, "content": "hello from the suite", "type": "text",
		})
		s.Require().Equal(http.StatusCreated, code)

		code, body := s.Call(http.MethodGet, "/api/unread?conversation_id="+convID, bobToken, nil)
		s.Require().Equal(http.StatusOK, code)
		s.Require().EqualValues(1, body["unread"])

		code, body = s.Call(http.MethodGet, "/api/conversations", bobToken, nil)
		s.Require().Equal(http.StatusOK, code)
		conversations := body["conversations"].([]any)
		s.Require().NotEmpty(conversations)
		first := conversations[0].(map[string]any)
		s.Require().Equal(convID, first["id"])
		s.Require().Equal("hello from the suite", first["last_message"].(map[string]any)["content"])
	})

	s.Run("Step 3: Bob reads, counters drain", func() {
		s.Step("Marking read")

		code, body := s.Call(http.MethodPost, "/api/conversations/"+convID+"/read", bobToken, nil)
		s.Require().Equal(http.StatusOK, code)
		s.Require().EqualValues(1, body["cleared"])

		code, body = s.Call(http.MethodGet, "/api/unread?conversation_id="+convID, bobToken, nil)
		s.Require().Equal(http.StatusOK, code)
		s.Require().EqualValues(0, body["unread"])

		// Marking again is harmless
		code, body = s.Call(http.MethodPost, "/api/conversations/"+convID+"/read", bobToken, nil)
		s.Require().Equal(http.StatusOK, code)
		s.Require().EqualValues(0, body["cleared"])
	})

	s.Run("Step 4: Outsiders stay out", func() {
		s.Step("Checking access control")

		code, _ := s.Call(http.MethodGet, "/api/conversations/"+convID+"/messages", "", nil)
		s.Require().Equal(http.StatusUnauthorized, code)

		code, body := s.Call(http.MethodPost, "/api/auth/register", "", map[string]any{
			"email": fmt.Sprintf("eve-%s@example.com", run), "full_name": "Eve", "password": password,
		})
		s.Require().Equal(http.StatusCreated, code)
		eveToken := body["token"].(string)

		code, _ = s.Call(http.MethodGet, "/api/conversations/"+convID+"/messages", eveToken, nil)
		s.Require().Equal(http.StatusForbidden, code)
	})
}
