package amqp

import (
	"time"

	"financemei/internal/events"

	"github.com/rabbitmq/amqp091-go"
)

// publishing wraps a ledger event in a persistent JSON AMQP message.
func publishing(e events.LedgerEvent) (amqp091.Publishing, error) {
	body, err := e.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         string(e.Type),
		Body:         body,
	}, nil
}
