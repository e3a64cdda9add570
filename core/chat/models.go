package chat

import (
	"time"

	"github.com/tshola/ngoma/core"
)

// Collection is the remote collection / cache entry name for chat messages.
const Collection = "messages"

// Conversation key prefixes. Every message belongs to exactly one
// conversation; live subscriptions are scoped by conversation key.
const (
	SupportPrefix   = "support:"
	TrainerPrefix   = "trainer:"
	BroadcastConvos = "admin:broadcast"
)

type Message struct {
	Key             string    `json:"key"`
	ConversationKey string    `json:"conversation_key"`
	SenderKey       string    `json:"sender_key"`
	SenderRole      string    `json:"sender_role"`
	Body            string    `json:"body"`
	SentAt          time.Time `json:"sent_at"`
}

func (m Message) RecordKey() string { return m.Key }

// NewMessage contains information needed to send a chat Message.
type NewMessage struct {
	ConversationKey string `json:"conversation_key" validate:"required"`
	Body            string `json:"body" validate:"required,max=4000"`
}

func (nm *NewMessage) Validate() error {
	nm.Body = core.CleanString(nm.Body)
	return core.Validate.Struct(nm)
}

// SupportConversationKey returns the key of a member's support conversation.
func SupportConversationKey(memberKey string) string {
	return SupportPrefix + memberKey
}

// TrainerConversationKey returns the key of a member<->trainer conversation.
func TrainerConversationKey(trainerKey, memberKey string) string {
	return TrainerPrefix + trainerKey + ":" + memberKey
}
