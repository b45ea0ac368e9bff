package billing

import (
	"context"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/stock-signals/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// AmqpNotifier публикует уведомления о выдаче доступа в RabbitMQ.
type AmqpNotifier struct {
	ch *amqp.Channel
}

// NewAmqpNotifier создает новый экземпляр AmqpNotifier.
func NewAmqpNotifier(ch *amqp.Channel) *AmqpNotifier {
	return &AmqpNotifier{ch: ch}
}

// PaymentGranted отправляет сообщение в очередь подтверждений оплаты.
func (n *AmqpNotifier) PaymentGranted(_ context.Context, user *models.User, event *models.PaymentEvent) error {
	message := models.GrantNotification{
		Email:    user.Email,
		UserUID:  user.UID,
		EventID:  event.EventID,
		Gateway:  string(event.Gateway),
		Amount:   event.Amount,
		Currency: event.Currency,
	}
	return rabbitmq.PublishMessage(n.ch, rabbitmq.BillingExchange, rabbitmq.GrantedRoutingKey, message)
}
