package models

import "time"

// Signal представляет торговую рекомендацию из фикстурного набора.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"` // BUY, SELL или HOLD
	Price     float64   `json:"price"`
	Target    float64   `json:"target"`
	StopLoss  float64   `json:"stop_loss"`
	Timestamp time.Time `json:"timestamp"`
}

// SignalsResponse — ответ со списком сигналов с учетом статуса подписки.
type SignalsResponse struct {
	Signals    []Signal `json:"signals"`
	IsLimited  bool     `json:"is_limited"`
	TotalCount int      `json:"total_count"`
}
