package offlinecache

type MessageType string

const (
	MessageSkipWaiting MessageType = "SKIP_WAITING"
	MessageRequestSync MessageType = "REQUEST_SYNC"
	MessageSyncResult  MessageType = "SYNC_RESULT"
	MessageSyncError   MessageType = "SYNC_ERROR"
)

// Message is the envelope exchanged between the worker and page clients.
type Message struct {
	Type    MessageType `json:"type"`
	Success *int        `json:"success,omitempty"`
	Failed  *int        `json:"failed,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SyncResultMessage(success, failed int) Message {
	return Message{Type: MessageSyncResult, Success: &success, Failed: &failed}
}

func SyncErrorMessage(err string) Message {
	return Message{Type: MessageSyncError, Error: err}
}
