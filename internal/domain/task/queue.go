package task

import (
	"strings"

	"github.com/moldex-io/moldex/pkg/errors"
)

// Queue is one of the Task Runtime's named queues, per spec §4.7.
type Queue string

const (
	QueueCSVProcessing      Queue = "csv_processing"
	QueueAIPredictions      Queue = "ai_predictions"
	QueueNotifications      Queue = "notifications"
	QueueDocumentProcessing Queue = "document_processing"
	QueueResultProcessing   Queue = "result_processing"
	QueueDefault            Queue = "default"
)

// AllQueues lists every well-known queue, in worker-startup order.
var AllQueues = []Queue{
	QueueCSVProcessing,
	QueueAIPredictions,
	QueueNotifications,
	QueueDocumentProcessing,
	QueueResultProcessing,
	QueueDefault,
}

var queueNames = map[Queue]bool{
	QueueCSVProcessing:      true,
	QueueAIPredictions:      true,
	QueueNotifications:      true,
	QueueDocumentProcessing: true,
	QueueResultProcessing:   true,
	QueueDefault:            true,
}

// RouteQueue resolves kind's queue from its "tasks.<queue>.*" prefix, per
// spec §4.7's routing rule. A kind naming an unrecognized queue segment
// routes to QueueDefault rather than failing, since the runtime must still
// be able to drain tasks whose queue segment is merely unfamiliar (e.g.
// forward compatibility with a newer producer); kind still must begin with
// the "tasks." prefix to be considered well-formed.
func RouteQueue(kind string) (Queue, error) {
	const prefix = "tasks."
	if !strings.HasPrefix(kind, prefix) {
		return "", errors.InvalidParam("task kind must be prefixed \"tasks.<queue>.\": " + kind)
	}
	rest := strings.TrimPrefix(kind, prefix)
	segment, _, found := strings.Cut(rest, ".")
	if !found || segment == "" {
		return "", errors.InvalidParam("task kind must name a queue segment: " + kind)
	}
	q := Queue(segment)
	if !queueNames[q] {
		return QueueDefault, nil
	}
	return q, nil
}
