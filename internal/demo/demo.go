package demo

import (
	"github.com/compforge/syncmesh/cmn/nlog"
	"github.com/compforge/syncmesh/core/meta"
)

// Type names used to register Character/ChatMessage with an Engine.
const (
	CharacterTypeName   = "character"
	ChatMessageTypeName = "chat_message"
)

// LogChatMessage is a sample meta.UpdateFunc for ChatMessage: it has no
// real local state to apply, so it just logs the delivery and always
// reports success.
func LogChatMessage(_ meta.Host, typeName string, record meta.Record, isRemove bool) bool {
	msg, ok := record.(*ChatMessage)
	if !ok {
		nlog.Warningf("%s: unexpected record type %T", typeName, record)
		return false
	}
	verb := "delivered"
	if isRemove {
		verb = "retracted"
	}
	nlog.Infof("chat message %s: %s -> %s: %q", verb, msg.From, msg.To, msg.Body)
	return true
}
