package models

// Gateway идентифицирует платёжный шлюз.
type Gateway string

const (
	// GatewayStripe — шлюз Stripe.
	GatewayStripe Gateway = "stripe"
	// GatewayRazorpay — шлюз Razorpay.
	GatewayRazorpay Gateway = "razorpay"
)

// EventStatus статус нормализованного платёжного события.
type EventStatus string

const (
	// StatusPending — платеж еще не завершен.
	StatusPending EventStatus = "pending"
	// StatusVerified — платеж подтвержден шлюзом, подпись проверена.
	StatusVerified EventStatus = "verified"
	// StatusFailed — платеж не прошел либо статус шлюза неизвестен.
	StatusFailed EventStatus = "failed"
)

// PaymentEvent — нормализованное платёжное событие, единая форма
// для вебхуков обоих шлюзов и клиентского подтверждения оплаты.
// Не сохраняется целиком: в хранилище попадают только event_id
// (идемпотентность) и журнальная запись платежа.
type PaymentEvent struct {
	EventID  string      // Внешний идентификатор события или платежа
	Gateway  Gateway     // Шлюз, породивший событие
	UserRef  string      // UID пользователя из metadata/notes
	Amount   int64       // Сумма в минимальных единицах валюты
	Currency string      // Валюта платежа
	Status   EventStatus // Нормализованный статус
}

// GrantNotification — сообщение для очереди уведомлений об успешной оплате.
type GrantNotification struct {
	Email    string `json:"email"`
	UserUID  string `json:"user_uid"`
	EventID  string `json:"event_id"`
	Gateway  string `json:"gateway"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
