package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/linechime/backend/internal/sandbox"
	"github.com/redis/go-redis/v9"
)

// StartEventRelay subscribes to the session event channel and delivers
// every event to the matching room. Events for sessions without clients on
// this instance are dropped.
func StartEventRelay(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event relay not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, sandbox.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", sandbox.EventsChannel)
		for msg := range ch {
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}
			hub.Deliver(ev)
		}
		log.Printf("[WS] %s subscriber stopped", sandbox.EventsChannel)
	}()
}

func decodeEvent(payload string) (sandbox.Event, error) {
	var ev sandbox.Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
