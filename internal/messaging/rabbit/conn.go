// Package rabbit реализует AMQP-транспорт сервиса: RPC-сервер входящих
// паттернов и клиент каталога поверх direct reply-to.
package rabbit

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// Client держит AMQP-соединение и канал процесса.
type Client struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *log.Entry
}

// Connect открывает соединение с брокером и канал поверх него.
func Connect(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	return &Client{
		conn:   conn,
		ch:     ch,
		logger: log.WithField("component", "rabbit-client"),
	}, nil
}

// Channel возвращает канал для consume/publish.
func (c *Client) Channel() *amqp.Channel {
	return c.ch
}

// Ping сообщает, живо ли соединение; используется health-чекером.
func (c *Client) Ping() error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

// Close закрывает канал и соединение.
func (c *Client) Close() error {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.logger.WithError(err).Warn("failed to close rabbitmq channel")
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
