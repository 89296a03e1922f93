// Package audit provides best-effort audit recording. A failed audit write
// logs a warning and nothing else: it must never block or roll back the
// state transition it describes.
package audit

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/workpulse/workpulse/internal/models"
)

// Sink persists audit entries. The SQL implementation lives in repository;
// tests use an in-memory sink.
type Sink interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// Recorder shapes and writes audit entries. A nil Recorder is valid and
// records nothing.
type Recorder struct {
	sink Sink
	log  *logrus.Logger
}

func NewRecorder(sink Sink, log *logrus.Logger) *Recorder {
	if sink == nil {
		return nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{sink: sink, log: log}
}

// Record writes one entry. oldValues and newValues are marshalled to JSON;
// values that fail to marshal are recorded as empty snapshots.
func (r *Recorder) Record(ctx context.Context, action string, actorID, affectedUserID int, entity string, entityID int, oldValues, newValues interface{}, reason string) {
	if r == nil {
		return
	}
	entry := &models.AuditLog{
		Action:         action,
		ActorID:        actorID,
		AffectedUserID: affectedUserID,
		Entity:         entity,
		EntityID:       entityID,
		OldValues:      marshalSnapshot(oldValues),
		NewValues:      marshalSnapshot(newValues),
		Reason:         reason,
	}
	if err := r.sink.Insert(ctx, entry); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"entity":    entity,
			"entity_id": entityID,
		}).Warn("audit write failed")
	}
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
