package models

import (
	"fmt"
	"time"
)

// Product — продукт каталога. RegularPrice — базовая цена за месяц.
type Product struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	Category         string  `json:"category"`
	ImageURL         string  `json:"image_url"`
	RegularPrice     float64 `json:"regular_price"`
}

// Validate проверяет продукт.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("product: empty id")
	case p.Name == "":
		return fmt.Errorf("product %s: empty name", p.ID)
	case p.RegularPrice <= 0:
		return fmt.Errorf("product %s: regular price must be positive", p.ID)
	}
	return nil
}

// ContractStatus — статус корпоративного контракта.
type ContractStatus string

const (
	ContractActive  ContractStatus = "active"
	ContractExpired ContractStatus = "expired"
)

// Contract — корпоративный контракт с согласованными ценами.
// Привязка к пользователям идёт через OrganizationID, CorporateName только для отображения.
type Contract struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	CorporateName  string         `json:"corporate_name"`
	EffectiveDate  time.Time      `json:"effective_date"`
	ExpirationDate time.Time      `json:"expiration_date"`
	Status         ContractStatus `json:"status"`
}

// Covers сообщает, попадает ли момент now в окно [EffectiveDate, ExpirationDate].
func (c Contract) Covers(now time.Time) bool {
	return !now.Before(c.EffectiveDate) && !now.After(c.ExpirationDate)
}

// Validate проверяет контракт.
func (c Contract) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("contract: empty id")
	case c.OrganizationID == "":
		return fmt.Errorf("contract %s: empty organization", c.ID)
	case !c.ExpirationDate.After(c.EffectiveDate):
		return fmt.Errorf("contract %s: expiration must be after effective date", c.ID)
	case c.Status != ContractActive && c.Status != ContractExpired:
		return fmt.Errorf("contract %s: unknown status %q", c.ID, c.Status)
	}
	return nil
}

// ContractPrice — согласованная цена продукта по контракту на интервале дат.
// ExpirationDate == nil означает бессрочную цену.
type ContractPrice struct {
	ID             string     `json:"id"`
	ContractID     string     `json:"contract_id"`
	ProductID      string     `json:"product_id"`
	Price          float64    `json:"price"`
	EffectiveDate  time.Time  `json:"effective_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// EffectiveAt сообщает, действует ли цена в момент now: EffectiveDate <= now < ExpirationDate.
func (p ContractPrice) EffectiveAt(now time.Time) bool {
	if now.Before(p.EffectiveDate) {
		return false
	}
	return p.ExpirationDate == nil || now.Before(*p.ExpirationDate)
}

// Validate проверяет цену контракта.
func (p ContractPrice) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("contract price: empty id")
	case p.ContractID == "" || p.ProductID == "":
		return fmt.Errorf("contract price %s: missing contract or product", p.ID)
	case p.Price <= 0:
		return fmt.Errorf("contract price %s: price must be positive", p.ID)
	case p.ExpirationDate != nil && !p.ExpirationDate.After(p.EffectiveDate):
		return fmt.Errorf("contract price %s: expiration must be after effective date", p.ID)
	}
	return nil
}
