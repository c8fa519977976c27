package index

import "log/slog"

// ChannelSink fans events out onto a buffered channel, dropping and
// counting on overflow so a slow host never slows the indexing pipeline.
type ChannelSink struct {
	events  chan TopicEvent
	dropped int
}

// TopicEvent pairs a topic with its payload for channel delivery.
type TopicEvent struct {
	Topic   string
	Payload any
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{events: make(chan TopicEvent, bufferSize)}
}

// Emit implements EventSink.
func (s *ChannelSink) Emit(topic string, payload any) {
	select {
	case s.events <- TopicEvent{Topic: topic, Payload: payload}:
	default:
		s.dropped++
	}
}

// Events returns the channel hosts should range over to receive events.
func (s *ChannelSink) Events() <-chan TopicEvent {
	return s.events
}

// Dropped returns the number of events dropped due to a full buffer.
func (s *ChannelSink) Dropped() int {
	return s.dropped
}

// Close closes the underlying channel. Safe to call once, after the
// Coordinator that owns this sink has stopped emitting.
func (s *ChannelSink) Close() {
	close(s.events)
}

// LogSink wraps log/slog for host-less operation (CLI runs, tests) where
// nothing consumes a channel of lifecycle events.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit implements EventSink.
func (s *LogSink) Emit(topic string, payload any) {
	s.logger.Info(topic, slog.Any("payload", payload))
}
