package realtime

import (
	"context"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

// Messages returns a channel receiving every inbound message until ctx is
// done, at which point the channel is closed. When the buffer is full,
// messages for this consumer are dropped rather than stalling the loop
func (c *Client) Messages(ctx context.Context, size int) <-chan api.Message {
	ch := make(chan api.Message, max(size, 1))
	remove := c.AddListener(func(m api.Message) {
		select {
		case ch <- m:
		default:
			c.logger.Warn("Dropping message for slow consumer",
				log.MessageType(m.Type))
		}
	})

	go func() {
		<-ctx.Done()
		remove()
		if !c.enqueue(func() { close(ch) }) {
			close(ch)
		}
	}()
	return ch
}
