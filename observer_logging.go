package forgellm

// LoggingObserver writes leveled, structured log lines for each event:
// info for start/complete, error for errors, warn for retries, debug for
// stream chunks.
type LoggingObserver struct {
	logger Logger
}

// NewLoggingObserver creates a logging observer writing through the given
// logger.
func NewLoggingObserver(logger Logger) *LoggingObserver {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements Observer.
func (o *LoggingObserver) OnEvent(event Event) error {
	switch e := event.(type) {
	case ChatStartEvent:
		o.logger.Info("chat started",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"model", e.Model,
			"messages", e.MessageCount,
			"tools", e.HasTools,
		)
	case ChatCompleteEvent:
		o.logger.Info("chat completed",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"model", e.Model,
			"latency_ms", e.Latency.Milliseconds(),
			"total_tokens", e.Usage.TotalTokens,
			"prompt_tokens", e.Usage.PromptTokens,
			"completion_tokens", e.Usage.CompletionTokens,
			"finish_reason", e.FinishReason,
			"tool_calls", e.ToolCallsCount,
			"from_cache", e.FromCache,
		)
	case ChatErrorEvent:
		o.logger.Error("chat failed",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"error_type", e.ErrorType,
			"error", e.ErrorMessage,
			"latency_ms", e.Latency.Milliseconds(),
			"retryable", e.Retryable,
		)
	case RetryEvent:
		o.logger.Warn("retrying chat",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"attempt", e.Attempt,
			"max_attempts", e.MaxAttempts,
			"delay_ms", e.Delay.Milliseconds(),
			"error_type", e.ErrorType,
		)
	case StreamChunkEvent:
		o.logger.Debug("stream chunk",
			"request_id", e.RequestID,
			"provider", e.Provider,
			"index", e.ChunkIndex,
			"content", e.HasContent,
			"tool_call", e.HasToolCall,
		)
	}
	return nil
}
