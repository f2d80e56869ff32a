package mail

import (
	"context"
	"go-books-api/logger"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const sendTimeout = 30 * time.Second

// Dispatcher sends mail in the background so a slow relay never holds up an
// HTTP response. Errors are logged and dropped.
type Dispatcher struct {
	sender Sender
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch queues a message and returns immediately.
func (d *Dispatcher) Dispatch(addresses []string, subject, htmlBody string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		log := logger.Log.WithFields(logrus.Fields{
			"recipients": addresses,
			"subject":    subject,
		})

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := d.sender.Send(ctx, addresses, subject, htmlBody); err != nil {
			log.WithError(err).Error("Failed to send email")
			return
		}
		log.Info("Email sent")
	}()
}

// Wait blocks until every dispatched message has been attempted or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
