package forgellm

// CallbackObserver forwards events to user-supplied functions per event
// kind. Unset kinds are skipped.
type CallbackObserver struct {
	OnStart       func(ChatStartEvent)
	OnComplete    func(ChatCompleteEvent)
	OnError       func(ChatErrorEvent)
	OnRetry       func(RetryEvent)
	OnStreamChunk func(StreamChunkEvent)
}

// OnEvent implements Observer.
func (o *CallbackObserver) OnEvent(event Event) error {
	switch e := event.(type) {
	case ChatStartEvent:
		if o.OnStart != nil {
			o.OnStart(e)
		}
	case ChatCompleteEvent:
		if o.OnComplete != nil {
			o.OnComplete(e)
		}
	case ChatErrorEvent:
		if o.OnError != nil {
			o.OnError(e)
		}
	case RetryEvent:
		if o.OnRetry != nil {
			o.OnRetry(e)
		}
	case StreamChunkEvent:
		if o.OnStreamChunk != nil {
			o.OnStreamChunk(e)
		}
	}
	return nil
}
