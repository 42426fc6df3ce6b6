package server

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// RefreshEvent tells clients that a source changed and the feed should be
// fetched again
type RefreshEvent struct {
	SourceId string `json:"sourceId,omitempty"`
	PostId   string `json:"postId,omitempty"`
	Date     string `json:"date,omitempty"`
}

type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan RefreshEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan RefreshEvent),
	}
}

// Broadcast sends the event to every client without blocking. Clients with a
// full channel miss it.
func (b *Broadcaster) Broadcast(event RefreshEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- event:
		default:
			log.Warnf("Client channel full, skipping refresh for client: %v", id)
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan RefreshEvent) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

// Count returns the number of connected clients
func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}
