package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/rs/zerolog/log"
)

type accountMessage struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients and routes account messages to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients, grouped by the account they belong to.
	accounts map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan accountMessage
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		accounts:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan accountMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, clients := range h.accounts {
			for client := range clients {
				close(client.Send)
			}
		}
		h.accounts = nil
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			if h.accounts[client.UserID] == nil {
				h.accounts[client.UserID] = make(map[*Client]bool)
			}
			h.accounts[client.UserID][client] = true
			log.Debug().Str("user_id", client.UserID).Int("account_clients", len(h.accounts[client.UserID])).Msg("Client connected")
		case client := <-h.unregister:
			if h.accounts[client.UserID][client] {
				h.drop(client)
				log.Debug().Str("user_id", client.UserID).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			for client := range h.accounts[msg.userID] {
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer; it reconnects and reloads.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients := h.accounts[client.UserID]
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.accounts, client.UserID)
	}
}

// Register adds client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo queues data for every client of the account.
func (h *Hub) SendTo(ctx context.Context, userID string, data []byte) error {
	select {
	case <-h.done:
		return fmt.Errorf("hub stopped")
	default:
	}
	select {
	case h.publish <- accountMessage{userID: userID, data: data}:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishTrade implements services.TradePublisher by pushing the trade to the
// account's open browser tabs.
func (h *Hub) PublishTrade(ctx context.Context, ev models.TradeEvent) error {
	data, err := json.Marshal(Message{Action: ActionTradeExecuted, Payload: ev})
	if err != nil {
		return fmt.Errorf("encode trade %d: %w", ev.EntryID, err)
	}
	return h.SendTo(ctx, ev.UserID, data)
}
