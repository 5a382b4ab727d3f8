package alert

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
)

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	nc  *nats.Conn
	log logger.Logger
}

// ConnectNATS dials url. The connection reconnects on its own; events
// published while disconnected are buffered by the client.
func ConnectNATS(url string, log logger.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logger.Noop()
	}
	nc, err := nats.Connect(url,
		nats.Name("vigil"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot connect to NATS at "+url,
			"Check alerts.nats_url or leave it empty to disable alerts")
	}
	return &NATSPublisher{nc: nc, log: log}, nil
}

// Publish sends data on subject.
func (p *NATSPublisher) Publish(subject string, data []byte) error {
	return p.nc.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Flush(); err != nil {
		p.log.Debug("nats flush: %v", err)
	}
	p.nc.Close()
	return nil
}
