// Package pricing вычисляет цену продукта для пользователя с учетом корпоративных контрактов.
//
// Расчет никогда не завершается ошибкой: при любых недостающих данных
// возвращается обычная цена продукта.
package pricing

import (
	"time"

	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// Quote — цена продукта для отображения пользователю.
type Quote struct {
	Price           float64 `json:"price"`
	RegularPrice    float64 `json:"regular_price"`
	HasDiscount     bool    `json:"has_discount"`
	ContractPriceID string  `json:"contract_price_id,omitempty"`
}

// Resolve возвращает цену product для user в момент now.
func Resolve(user *models.User, product models.Product, contracts []models.Contract, prices []models.ContractPrice, now time.Time) float64 {
	return QuoteFor(user, product, contracts, prices, now).Price
}

// QuoteFor — Resolve вместе с признаком скидки и источником цены.
// Цена контракта выше обычной все равно применяется, но без признака скидки.
func QuoteFor(user *models.User, product models.Product, contracts []models.Contract, prices []models.ContractPrice, now time.Time) Quote {
	q := Quote{Price: product.RegularPrice, RegularPrice: product.RegularPrice}

	contract, ok := ActiveContract(user, contracts, now)
	if !ok {
		return q
	}
	price, ok := effectivePrice(contract.ID, product.ID, prices, now)
	if !ok {
		return q
	}

	q.Price = price.Price
	q.ContractPriceID = price.ID
	q.HasDiscount = price.Price < product.RegularPrice
	return q
}

// ActiveContract выбирает действующий контракт организации корпоративного пользователя.
// Из нескольких подходящих выигрывает контракт с самой поздней датой начала,
// при равенстве — с меньшим ID.
func ActiveContract(user *models.User, contracts []models.Contract, now time.Time) (models.Contract, bool) {
	if user == nil || user.Role != models.RoleCorporate || user.OrganizationID == "" {
		return models.Contract{}, false
	}

	var (
		best  models.Contract
		found bool
	)
	for _, c := range contracts {
		if c.OrganizationID != user.OrganizationID || c.Status != models.ContractActive || !c.Covers(now) {
			continue
		}
		if !found || later(c.EffectiveDate, c.ID, best.EffectiveDate, best.ID) {
			best, found = c, true
		}
	}
	return best, found
}

// EffectivePrices возвращает по одной действующей цене на каждый продукт контракта.
func EffectivePrices(contractID string, prices []models.ContractPrice, now time.Time) map[string]models.ContractPrice {
	res := make(map[string]models.ContractPrice)
	for _, p := range prices {
		if p.ContractID != contractID || !p.EffectiveAt(now) {
			continue
		}
		cur, ok := res[p.ProductID]
		if !ok || later(p.EffectiveDate, p.ID, cur.EffectiveDate, cur.ID) {
			res[p.ProductID] = p
		}
	}
	return res
}

func effectivePrice(contractID, productID string, prices []models.ContractPrice, now time.Time) (models.ContractPrice, bool) {
	var (
		best  models.ContractPrice
		found bool
	)
	for _, p := range prices {
		if p.ContractID != contractID || p.ProductID != productID || !p.EffectiveAt(now) {
			continue
		}
		if !found || later(p.EffectiveDate, p.ID, best.EffectiveDate, best.ID) {
			best, found = p, true
		}
	}
	return best, found
}

// later сообщает, должна ли запись (t, id) вытеснить (bestT, bestID).
func later(t time.Time, id string, bestT time.Time, bestID string) bool {
	if t.Equal(bestT) {
		return id < bestID
	}
	return t.After(bestT)
}
