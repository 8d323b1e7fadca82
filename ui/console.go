// Package ui renders the session to a terminal. It is a thin frontend:
// all state decisions happen in the session core, the console only
// draws what it is told.
package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"support-chat/domain"
	"support-chat/projection"
)

// Console implements the Renderer contract on top of an io.Writer,
// keeping a Timeline projection so redraws stay possible.
type Console struct {
	out      io.Writer
	localID  string
	colours  bool
	timeline *projection.Timeline
}

func NewConsole(out io.Writer, localID string, colours bool) *Console {
	return &Console{
		out:      out,
		localID:  localID,
		colours:  colours,
		timeline: projection.NewTimeline(),
	}
}

// Timeline exposes the projection behind the console.
func (c *Console) Timeline() *projection.Timeline { return c.timeline }

func (c *Console) ShowConversation(peerID string, history []domain.Message) {
	c.timeline.ShowConversation(peerID, history)
	fmt.Fprintln(c.out, c.render(color.FgCyan, fmt.Sprintf("--- Conversation with %s ---", peerID)))
	for _, msg := range history {
		c.printMessage(msg)
	}
}

func (c *Console) AppendMessage(msg domain.Message) {
	c.timeline.AppendMessage(msg)
	c.printMessage(msg)
}

func (c *Console) ClearConversation() {
	c.timeline.ClearConversation()
	fmt.Fprintln(c.out, c.render(color.FgDarkGray, "--- Conversation closed ---"))
}

// ShowRoster draws the peer table. Engineers get the free list, admins
// the overview with busy dots; the columns cover both.
func (c *Console) ShowRoster(peers []domain.Peer) {
	c.timeline.ShowRoster(peers)

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"User", "Role", "Busy", "Unread"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, p := range peers {
		busy := ""
		if p.Busy {
			busy = "●"
		}
		unread := ""
		if p.Unread > 0 {
			unread = strconv.Itoa(p.Unread)
		}
		table.Append([]string{p.ID, string(p.Role), busy, unread})
	}
	table.Render()
}

func (c *Console) ShowNotice(text string) {
	c.timeline.ShowNotice(text)
	fmt.Fprintln(c.out, c.render(color.FgYellow, text))
}

func (c *Console) ShowError(text string) {
	c.timeline.ShowError(text)
	fmt.Fprintln(c.out, c.render(color.FgRed, "error: "+text))
}

func (c *Console) printMessage(msg domain.Message) {
	prefix := msg.SenderID
	if msg.SenderID == c.localID {
		prefix = c.render(color.FgGreen, "me")
	}
	fmt.Fprintf(c.out, "%s: %s\n", prefix, msg.Content)
}

func (c *Console) render(fg color.Color, text string) string {
	if !c.colours {
		return text
	}
	return color.New(fg).Render(text)
}
