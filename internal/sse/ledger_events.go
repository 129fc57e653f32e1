package sse

import (
	"context"
	"sync"

	"ms-invoicing/internal/models"
)

// LedgerHub fans ledger events out to every connected SSE client.
type LedgerHub struct {
	clients     map[chan models.LedgerEvent]struct{}
	clientMutex sync.RWMutex
	closed      bool
}

func NewLedgerHub() *LedgerHub {
	return &LedgerHub{
		clients: make(map[chan models.LedgerEvent]struct{}),
	}
}

// Subscribe registers a client until ctx is done; the channel is then closed.
func (h *LedgerHub) Subscribe(ctx context.Context) <-chan models.LedgerEvent {
	clientChan := make(chan models.LedgerEvent, 10)

	h.clientMutex.Lock()
	if h.closed {
		h.clientMutex.Unlock()
		close(clientChan)
		return clientChan
	}
	h.clients[clientChan] = struct{}{}
	h.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(clientChan)
	}()

	return clientChan
}

// PublishLedgerEvent never blocks: a client with a full buffer misses the event.
func (h *LedgerHub) PublishLedgerEvent(_ context.Context, evt models.LedgerEvent) error {
	h.clientMutex.RLock()
	defer h.clientMutex.RUnlock()

	for clientChan := range h.clients {
		select {
		case clientChan <- evt:
		default:
		}
	}
	return nil
}

// Broadcast is PublishLedgerEvent for callers without a context, such as the Kafka consumer.
func (h *LedgerHub) Broadcast(evt models.LedgerEvent) {
	_ = h.PublishLedgerEvent(context.Background(), evt)
}

func (h *LedgerHub) remove(clientChan chan models.LedgerEvent) {
	h.clientMutex.Lock()
	defer h.clientMutex.Unlock()

	if _, ok := h.clients[clientChan]; ok {
		delete(h.clients, clientChan)
		close(clientChan)
	}
}

// Close disconnects every client and refuses new ones.
func (h *LedgerHub) Close() {
	h.clientMutex.Lock()
	defer h.clientMutex.Unlock()

	h.closed = true
	for clientChan := range h.clients {
		delete(h.clients, clientChan)
		close(clientChan)
	}
}

func (h *LedgerHub) ClientCount() int {
	h.clientMutex.RLock()
	defer h.clientMutex.RUnlock()
	return len(h.clients)
}
