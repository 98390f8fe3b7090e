// Package fixtures загружает начальные данные витрины из YAML.
// По умолчанию используется встроенный seed.yaml.
package fixtures

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/magabrotheeeer/subscribepro/internal/lib/password"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

//go:embed seed.yaml
var embedded []byte

const dateLayout = "2006-01-02"

// Seed — полный набор начальных данных.
type Seed struct {
	Products       []models.Product
	Users          []models.User
	Contracts      []models.Contract
	ContractPrices []models.ContractPrice
	Subscriptions  []models.Subscription
	Invoices       []models.Invoice
}

type seedFile struct {
	Products []struct {
		ID               string  `yaml:"id"`
		Name             string  `yaml:"name"`
		Description      string  `yaml:"description"`
		ShortDescription string  `yaml:"short_description"`
		Category         string  `yaml:"category"`
		ImageURL         string  `yaml:"image_url"`
		RegularPrice     float64 `yaml:"regular_price"`
	} `yaml:"products"`
	Users []struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Email          string `yaml:"email"`
		Password       string `yaml:"password"`
		Role           string `yaml:"role"`
		Verified       bool   `yaml:"verified"`
		OrganizationID string `yaml:"organization_id"`
	} `yaml:"users"`
	Contracts []struct {
		ID             string `yaml:"id"`
		OrganizationID string `yaml:"organization_id"`
		CorporateName  string `yaml:"corporate_name"`
		EffectiveDate  string `yaml:"effective_date"`
		ExpirationDate string `yaml:"expiration_date"`
		Status         string `yaml:"status"`
	} `yaml:"contracts"`
	ContractPrices []struct {
		ID             string  `yaml:"id"`
		ContractID     string  `yaml:"contract_id"`
		ProductID      string  `yaml:"product_id"`
		Price          float64 `yaml:"price"`
		EffectiveDate  string  `yaml:"effective_date"`
		ExpirationDate string  `yaml:"expiration_date"`
	} `yaml:"contract_prices"`
	Subscriptions []struct {
		ID              string  `yaml:"id"`
		UserID          string  `yaml:"user_id"`
		ProductID       string  `yaml:"product_id"`
		StartDate       string  `yaml:"start_date"`
		NextBillingDate string  `yaml:"next_billing_date"`
		Status          string  `yaml:"status"`
		Price           float64 `yaml:"price"`
	} `yaml:"subscriptions"`
	Invoices []struct {
		ID             string  `yaml:"id"`
		SubscriptionID string  `yaml:"subscription_id"`
		ProductName    string  `yaml:"product_name"`
		BillingDate    string  `yaml:"billing_date"`
		Amount         float64 `yaml:"amount"`
		Status         string  `yaml:"status"`
	} `yaml:"invoices"`
}

// Load читает фикстуры из path, а при пустом path — встроенные.
func Load(path string) (*Seed, error) {
	const op = "fixtures.Load"
	data := embedded
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	seed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return seed, nil
}

// Parse разбирает YAML, хэширует пароли пользователей и проверяет ссылки между записями.
func Parse(data []byte) (*Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	seed := &Seed{}
	products := make(map[string]models.Product, len(f.Products))
	for _, p := range f.Products {
		product := models.Product{
			ID:               p.ID,
			Name:             p.Name,
			Description:      p.Description,
			ShortDescription: p.ShortDescription,
			Category:         p.Category,
			ImageURL:         p.ImageURL,
			RegularPrice:     p.RegularPrice,
		}
		if err := product.Validate(); err != nil {
			return nil, err
		}
		products[product.ID] = product
		seed.Products = append(seed.Products, product)
	}

	for _, u := range f.Users {
		hash, err := password.GetHash(u.Password)
		if err != nil {
			return nil, err
		}
		user := models.User{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			PasswordHash:   hash,
			Role:           models.Role(u.Role),
			Verified:       u.Verified,
			OrganizationID: u.OrganizationID,
		}
		if err := user.Validate(); err != nil {
			return nil, err
		}
		seed.Users = append(seed.Users, user)
	}

	contracts := make(map[string]struct{}, len(f.Contracts))
	for _, c := range f.Contracts {
		eff, err := parseDate(c.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.ID, err)
		}
		exp, err := parseDate(c.ExpirationDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", c.ID, err)
		}
		contract := models.Contract{
			ID:             c.ID,
			OrganizationID: c.OrganizationID,
			CorporateName:  c.CorporateName,
			EffectiveDate:  eff,
			ExpirationDate: exp,
			Status:         models.ContractStatus(c.Status),
		}
		if err := contract.Validate(); err != nil {
			return nil, err
		}
		contracts[contract.ID] = struct{}{}
		seed.Contracts = append(seed.Contracts, contract)
	}

	for _, p := range f.ContractPrices {
		eff, err := parseDate(p.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("contract price %s: %w", p.ID, err)
		}
		price := models.ContractPrice{
			ID:            p.ID,
			ContractID:    p.ContractID,
			ProductID:     p.ProductID,
			Price:         p.Price,
			EffectiveDate: eff,
		}
		if p.ExpirationDate != "" {
			exp, err := parseDate(p.ExpirationDate)
			if err != nil {
				return nil, fmt.Errorf("contract price %s: %w", p.ID, err)
			}
			price.ExpirationDate = &exp
		}
		if err := price.Validate(); err != nil {
			return nil, err
		}
		if _, ok := contracts[price.ContractID]; !ok {
			return nil, fmt.Errorf("contract price %s: unknown contract %s", price.ID, price.ContractID)
		}
		if _, ok := products[price.ProductID]; !ok {
			return nil, fmt.Errorf("contract price %s: unknown product %s", price.ID, price.ProductID)
		}
		seed.ContractPrices = append(seed.ContractPrices, price)
	}

	for _, s := range f.Subscriptions {
		product, ok := products[s.ProductID]
		if !ok {
			return nil, fmt.Errorf("subscription %s: unknown product %s", s.ID, s.ProductID)
		}
		start, err := parseDate(s.StartDate)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		next, err := parseDate(s.NextBillingDate)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", s.ID, err)
		}
		seed.Subscriptions = append(seed.Subscriptions, models.Subscription{
			ID:              s.ID,
			UserID:          s.UserID,
			ProductID:       s.ProductID,
			Product:         product,
			StartDate:       start,
			NextBillingDate: next,
			Status:          models.SubscriptionStatus(s.Status),
			Price:           s.Price,
		})
	}

	for _, i := range f.Invoices {
		date, err := parseDate(i.BillingDate)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", i.ID, err)
		}
		seed.Invoices = append(seed.Invoices, models.Invoice{
			ID:             i.ID,
			SubscriptionID: i.SubscriptionID,
			ProductName:    i.ProductName,
			BillingDate:    date,
			Amount:         i.Amount,
			Status:         models.InvoiceStatus(i.Status),
		})
	}

	return seed, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}
