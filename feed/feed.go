// Package feed turns accepted messages into an ordered, de-duplicated
// stream for the rendering layer. It keeps no history; its only memory
// is the id of the last rendered message.
package feed

import (
	"log/slog"

	"support-chat/contract"
	"support-chat/domain"
)

// Feed guards the renderer against duplicate deliveries. The broadcast
// path can hand back the sender's own copy of a message; comparing
// against the watermark drops the second arrival of the same id.
type Feed struct {
	log       *slog.Logger
	renderer  contract.Renderer
	watermark string
}

func New(log *slog.Logger, renderer contract.Renderer) *Feed {
	return &Feed{log: log, renderer: renderer}
}

// Ingest renders the message unless its non-empty id equals the
// watermark. Optimistic local sends carry no id: they always render and
// never advance the watermark, so they cannot shadow the acknowledged
// copy of a different message.
func (f *Feed) Ingest(msg domain.Message) bool {
	if msg.Acknowledged() && msg.ID == f.watermark {
		f.log.Debug("Suppressing duplicate delivery", "id", msg.ID)
		return false
	}
	if msg.Acknowledged() {
		f.watermark = msg.ID
	}
	f.renderer.AppendMessage(msg)
	return true
}

// Replace swaps the visible conversation for fetched history. The
// watermark moves to the last acknowledged id so a re-delivery of the
// newest stored message is still caught.
func (f *Feed) Replace(peerID string, history []domain.Message) {
	f.watermark = ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Acknowledged() {
			f.watermark = history[i].ID
			break
		}
	}
	f.renderer.ShowConversation(peerID, history)
}

// Clear empties the visible conversation and forgets the watermark.
// Called on every bind and unbind so a stale id from a previous
// conversation cannot suppress the first message of a new one.
func (f *Feed) Clear() {
	f.watermark = ""
	f.renderer.ClearConversation()
}

// Watermark exposes the last rendered id for tests and diagnostics.
func (f *Feed) Watermark() string { return f.watermark }
