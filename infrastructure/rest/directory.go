// Package rest implements the Directory collaborator against the
// support service's HTTP endpoints.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

type userDTO struct {
	NickName string                `json:"nickName"`
	Role     domain.Role           `json:"role"`
	Status   domain.PresenceStatus `json:"status"`
}

type userBusyDTO struct {
	NickName string      `json:"nickName"`
	Role     domain.Role `json:"role"`
	Busy     bool        `json:"busy"`
}

type messageDTO struct {
	ID          domain.FlexID `json:"id"`
	SenderID    string        `json:"senderId"`
	RecipientID string        `json:"recipientId"`
	Content     string        `json:"content"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Client talks to the user, message, chat-room and admin endpoints.
type Client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// OnlineUsers lists online users; passing the engineer role asks the
// server for its de-conflicted free list.
func (c *Client) OnlineUsers(ctx context.Context, role domain.Role) ([]domain.Peer, error) {
	path := "/users"
	if role != "" {
		path += "?role=" + url.QueryEscape(string(role))
	}
	var users []userDTO
	if err := c.getJSON(ctx, path, &users); err != nil {
		return nil, err
	}
	peers := make([]domain.Peer, 0, len(users))
	for _, u := range users {
		peers = append(peers, domain.Peer{
			ID:     u.NickName,
			Role:   u.Role,
			Online: u.Status != domain.StatusOffline,
		})
	}
	return peers, nil
}

// History fetches the stored exchange between two identities.
func (c *Client) History(ctx context.Context, a, b string) ([]domain.Message, error) {
	path := fmt.Sprintf("/messages/%s/%s", url.PathEscape(a), url.PathEscape(b))
	var dtos []messageDTO
	if err := c.getJSON(ctx, path, &dtos); err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(dtos))
	for _, m := range dtos {
		messages = append(messages, domain.Message{
			ID:          string(m.ID),
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Content:     m.Content,
			Timestamp:   m.Timestamp,
		})
	}
	return messages, nil
}

// Activate commits an engineer/user pairing.
func (c *Client) Activate(ctx context.Context, engineerID, userID string) error {
	path := fmt.Sprintf("/chatrooms/activate/%s/%s", url.PathEscape(engineerID), url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, path, nil)
}

// Deactivate releases a pairing.
func (c *Client) Deactivate(ctx context.Context, engineerID, userID string) error {
	path := fmt.Sprintf("/chatrooms/deactivate/%s/%s", url.PathEscape(engineerID), url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, path, nil)
}

// Overview lists every non-admin user with the busy flag.
func (c *Client) Overview(ctx context.Context) ([]domain.Peer, error) {
	var users []userBusyDTO
	if err := c.getJSON(ctx, "/admin/overview", &users); err != nil {
		return nil, err
	}
	peers := make([]domain.Peer, 0, len(users))
	for _, u := range users {
		peers = append(peers, domain.Peer{
			ID:     u.NickName,
			Role:   u.Role,
			Online: true,
			Busy:   u.Busy,
		})
	}
	return peers, nil
}

// Partner resolves the active counterpart of a busy identity. The
// endpoint answers with a plain-text nickname.
func (c *Client) Partner(ctx context.Context, nick string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/admin/partner/"+url.PathEscape(nick), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("partner lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("partner of %s: %w", nick, apperrors.ErrPeerNotBusy)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("partner lookup: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("partner lookup: %w", err)
	}
	return string(body), nil
}

// Kick removes a free user; a conflict means the user is still busy.
func (c *Client) Kick(ctx context.Context, nick string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/admin/kick/"+url.PathEscape(nick), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("kick: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("kick %s: %w", nick, apperrors.ErrPeerBusy)
	default:
		return fmt.Errorf("kick: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", method, path, err)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return nil
}
