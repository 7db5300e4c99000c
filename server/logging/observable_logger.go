package logging

import (
	"strings"

	"github.com/asaskevich/EventBus"
)

const TopicLog = "log:line"

// ObservableLogger republishes every log record on the bus so that front-ends
// can follow the log live.
type ObservableLogger struct {
	bus EventBus.Bus
}

func NewObservableLogger(bus EventBus.Bus) *ObservableLogger {
	return &ObservableLogger{bus: bus}
}

func (o *ObservableLogger) Write(p []byte) (int, error) {
	if o.bus.HasCallback(TopicLog) {
		o.bus.Publish(TopicLog, strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}
