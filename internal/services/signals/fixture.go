package signals

import (
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// fixtureSignals — фикстурный набор торговых рекомендаций.
// Порядок стабилен: первые FreeUserSignalLimit записей видят бесплатные
// пользователи. Временные метки обновляются при заполнении кеша.
var fixtureSignals = []models.Signal{
	{Symbol: "NIFTY", Action: "BUY", Price: 22450.50, Target: 22650.00, StopLoss: 22350.00},
	{Symbol: "BANKNIFTY", Action: "SELL", Price: 48200.00, Target: 47800.00, StopLoss: 48400.00},
	{Symbol: "RELIANCE", Action: "BUY", Price: 2890.25, Target: 2950.00, StopLoss: 2860.00},
	{Symbol: "TCS", Action: "HOLD", Price: 4125.00, Target: 4200.00, StopLoss: 4050.00},
	{Symbol: "HDFC BANK", Action: "BUY", Price: 1650.75, Target: 1720.00, StopLoss: 1620.00},
	{Symbol: "INFOSYS", Action: "SELL", Price: 1580.00, Target: 1520.00, StopLoss: 1610.00},
	{Symbol: "ICICI BANK", Action: "BUY", Price: 1120.50, Target: 1180.00, StopLoss: 1090.00},
	{Symbol: "SBIN", Action: "BUY", Price: 780.25, Target: 820.00, StopLoss: 760.00},
}

// freshSignals возвращает копию фикстуры с актуальными временными метками.
func freshSignals(now time.Time) []models.Signal {
	result := make([]models.Signal, len(fixtureSignals))
	copy(result, fixtureSignals)
	for i := range result {
		result[i].Timestamp = now
	}
	return result
}
