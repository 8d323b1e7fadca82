// Package projection builds local views from what the session core
// asked to render. Handles ordering and replacement only; it does not
// emit events or talk to the transport.
package projection

import (
	"support-chat/domain"
)

// Timeline is a headless renderer: it records the visible conversation,
// the latest roster snapshot and surfaced notices. Terminal and test
// frontends read from it instead of keeping their own state.
type Timeline struct {
	Peer     string
	Messages []domain.Message
	Roster   []domain.Peer
	Notices  []string
	Errors   []string
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) ShowConversation(peerID string, history []domain.Message) {
	t.Peer = peerID
	t.Messages = append([]domain.Message(nil), history...)
}

func (t *Timeline) AppendMessage(msg domain.Message) {
	t.Messages = append(t.Messages, msg)
}

func (t *Timeline) ClearConversation() {
	t.Peer = ""
	t.Messages = nil
}

func (t *Timeline) ShowRoster(peers []domain.Peer) {
	t.Roster = append([]domain.Peer(nil), peers...)
}

func (t *Timeline) ShowNotice(text string) {
	t.Notices = append(t.Notices, text)
}

func (t *Timeline) ShowError(text string) {
	t.Errors = append(t.Errors, text)
}

// LastMessage returns the newest visible message, if any.
func (t *Timeline) LastMessage() (domain.Message, bool) {
	if len(t.Messages) == 0 {
		return domain.Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}
