package relay

import (
	"time"

	"github.com/marcelsud/webhook-relay/relay/normalize"
)

/* Result is the uniform outcome of one relay attempt
 * Diagnostic holds upstream detail for logs and is never serialized
 */
type Result struct {
	Success    bool        `json:"success"`
	MessageID  string      `json:"messageId"`
	Timestamp  time.Time   `json:"timestamp"`
	BotMessage *BotMessage `json:"botMessage,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorCode  Code        `json:"errorCode,omitempty"`
	HTTPStatus int         `json:"httpStatus,omitempty"`
	Diagnostic string      `json:"-"`
}

type BotMessage struct {
	Content  string      `json:"content"`
	Type     MessageType `json:"type"`
	Metadata Metadata    `json:"metadata"`
}

type Metadata struct {
	OriginalResponse normalize.Value `json:"originalResponse"`
}
