package repositories

import (
	"convo/domain"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Keyspace layout. Message keys embed the padded timestamp followed by the
// padded append sequence, so a forward prefix scan yields the log in
// chronological order with append order as the tiebreak:
//
//	conv:{convID}                                -> diskConversation
//	convidx:{userID}:{convID}                    -> "" (membership index)
//	msg:{convID}:{ts %019d}:{seq %012d}          -> diskMessage
//	msgref:{convID}:{msgID}                      -> primary msg key
//	unread:{userID}:{convID}:{ts %019d}:{msgID}  -> ""
const (
	convPrefix    = "conv:"
	convIdxPrefix = "convidx:"
	msgKeyPrefix  = "msg:"
	msgRefPrefix  = "msgref:"
	unreadKeyPfx  = "unread:"
)

func convKey(id uuid.UUID) []byte {
	return []byte(convPrefix + id.String())
}

func memberIdxKey(userID string, convID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", convIdxPrefix, userID, convID))
}

func memberIdxPrefix(userID string) []byte {
	return []byte(convIdxPrefix + userID + ":")
}

func msgKey(convID uuid.UUID, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%012d", msgKeyPrefix, convID, at.UnixNano(), seq))
}

func msgPrefix(convID uuid.UUID) []byte {
	return []byte(msgKeyPrefix + convID.String() + ":")
}

func msgRefKey(convID, msgID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", msgRefPrefix, convID, msgID))
}

func msgRefPrefixFor(convID uuid.UUID) []byte {
	return []byte(msgRefPrefix + convID.String() + ":")
}

func unreadKey(userID string, convID uuid.UUID, at time.Time, msgID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%019d:%s", unreadKeyPfx, userID, convID, at.UnixNano(), msgID))
}

func unreadConvPrefix(userID string, convID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", unreadKeyPfx, userID, convID))
}

func unreadUserPrefix(userID string) []byte {
	return []byte(unreadKeyPfx + userID + ":")
}

// diskConversation is the stored form of a conversation. LastAppendNano is
// the timestamp high-water mark used to keep per-conversation timestamps
// monotonic; NextSeq numbers appends. Neither leaves the repository layer.
type diskConversation struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	IsGroup        bool     `json:"is_group"`
	Members        []string `json:"members"`
	CreatedAtNano  int64    `json:"created_at"`
	LastMessageID  string   `json:"last_message_id,omitempty"`
	LastAppendNano int64    `json:"last_append,omitempty"`
	NextSeq        uint64   `json:"next_seq"`
}

type diskMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	Lang           string `json:"lang,omitempty"`
	Seq            uint64 `json:"seq"`
	CreatedAtNano  int64  `json:"created_at"`
	IsEdited       bool   `json:"is_edited,omitempty"`
}

func fromConversation(conv domain.Conversation) diskConversation {
	dc := diskConversation{
		ID:            conv.ID.String(),
		Name:          conv.Name,
		IsGroup:       conv.IsGroup,
		Members:       conv.Members,
		CreatedAtNano: conv.CreatedAt.UnixNano(),
	}
	if conv.LastMessageID != nil {
		dc.LastMessageID = conv.LastMessageID.String()
	}
	return dc
}

func toConversation(dc diskConversation) (domain.Conversation, error) {
	id, err := uuid.Parse(dc.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	conv := domain.Conversation{
		ID:        id,
		Name:      dc.Name,
		IsGroup:   dc.IsGroup,
		Members:   dc.Members,
		CreatedAt: time.Unix(0, dc.CreatedAtNano).UTC(),
	}
	if dc.LastMessageID != "" {
		lastID, err := uuid.Parse(dc.LastMessageID)
		if err != nil {
			return domain.Conversation{}, err
		}
		conv.LastMessageID = &lastID
	}
	return conv, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Type:           string(msg.Type),
		Lang:           msg.Lang,
		Seq:            msg.Seq,
		CreatedAtNano:  msg.CreatedAt.UnixNano(),
		IsEdited:       msg.IsEdited,
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	convID, err := uuid.Parse(dm.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       dm.SenderID,
		Content:        dm.Content,
		Type:           domain.MessageType(dm.Type),
		Lang:           dm.Lang,
		Seq:            dm.Seq,
		CreatedAt:      time.Unix(0, dm.CreatedAtNano).UTC(),
		IsEdited:       dm.IsEdited,
	}, nil
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
