package forgellm

import "time"

// Event kind tags, one per event struct.
const (
	EventKindChatStart    = "chat_start"
	EventKindChatComplete = "chat_complete"
	EventKindChatError    = "chat_error"
	EventKindRetry        = "retry"
	EventKindStreamChunk  = "stream_chunk"
)

// Event is a lifecycle event delivered to observers. The set of kinds is
// closed: observers dispatch with a type switch over the structs below.
// Events never carry message content.
type Event interface {
	Kind() string
}

// ChatStartEvent is emitted when a chat call enters the layer.
type ChatStartEvent struct {
	Timestamp    time.Time
	RequestID    string
	Provider     string
	Model        string
	MessageCount int
	HasTools     bool
}

// Kind implements Event.
func (ChatStartEvent) Kind() string { return EventKindChatStart }

// ChatCompleteEvent is emitted when a chat call completes successfully
// (including cache hits).
type ChatCompleteEvent struct {
	Timestamp      time.Time
	RequestID      string
	Provider       string
	Model          string
	Latency        time.Duration
	Usage          TokenUsage
	FinishReason   string
	ToolCallsCount int
	FromCache      bool
}

// Kind implements Event.
func (ChatCompleteEvent) Kind() string { return EventKindChatComplete }

// ChatErrorEvent is emitted when a chat call fails terminally.
type ChatErrorEvent struct {
	Timestamp    time.Time
	RequestID    string
	Provider     string
	ErrorType    string
	ErrorMessage string
	Latency      time.Duration
	Retryable    bool
}

// Kind implements Event.
func (ChatErrorEvent) Kind() string { return EventKindChatError }

// RetryEvent is emitted before each backoff sleep.
type RetryEvent struct {
	Timestamp   time.Time
	RequestID   string
	Provider    string
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	ErrorType   string
}

// Kind implements Event.
func (RetryEvent) Kind() string { return EventKindRetry }

// StreamChunkEvent is emitted for each streaming chunk.
type StreamChunkEvent struct {
	Timestamp   time.Time
	RequestID   string
	Provider    string
	ChunkIndex  int
	HasContent  bool
	HasToolCall bool
}

// Kind implements Event.
func (StreamChunkEvent) Kind() string { return EventKindStreamChunk }
