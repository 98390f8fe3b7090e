package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscribepro/internal/fixtures"
	"github.com/magabrotheeeer/subscribepro/internal/lib/apperr"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStorage(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, CheckDatabaseReady(storage))

	t.Run("seed is idempotent", func(t *testing.T) {
		seed, err := fixtures.Load("")
		require.NoError(t, err)
		require.NoError(t, storage.Seed(ctx, seed))

		products, err := storage.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, products, 4)
		assert.Equal(t, "prod_1", products[0].ID)
		assert.Equal(t, 199.99, products[0].RegularPrice)
	})

	t.Run("products crud", func(t *testing.T) {
		p := models.Product{ID: "prod_new", Name: "New", Category: "Misc", RegularPrice: 10}
		require.NoError(t, storage.CreateProduct(ctx, p))

		p.RegularPrice = 12.5
		require.NoError(t, storage.UpdateProduct(ctx, p))
		got, err := storage.GetProduct(ctx, "prod_new")
		require.NoError(t, err)
		assert.Equal(t, p, got)

		require.NoError(t, storage.DeleteProduct(ctx, "prod_new"))
		_, err = storage.GetProduct(ctx, "prod_new")
		assert.True(t, errors.Is(err, apperr.NotFound))
		assert.True(t, errors.Is(storage.DeleteProduct(ctx, "prod_new"), apperr.NotFound))
	})

	t.Run("contracts and prices", func(t *testing.T) {
		c := models.Contract{
			ID: "contract_2", OrganizationID: "org_globex", CorporateName: "Globex",
			EffectiveDate: day(2024, 1, 1), ExpirationDate: day(2025, 1, 1), Status: models.ContractActive,
		}
		require.NoError(t, storage.CreateContract(ctx, c))

		exp := day(2024, 6, 1)
		p := models.ContractPrice{ID: "price_9", ContractID: "contract_2", ProductID: "prod_3", Price: 19.99,
			EffectiveDate: day(2024, 1, 1), ExpirationDate: &exp}
		require.NoError(t, storage.CreateContractPrice(ctx, p))

		prices, err := storage.ListContractPrices(ctx)
		require.NoError(t, err)
		require.Len(t, prices, 3)
		assert.Nil(t, prices[0].ExpirationDate)
		require.NotNil(t, prices[2].ExpirationDate)
		assert.True(t, prices[2].ExpirationDate.Equal(exp))

		require.NoError(t, storage.UpdateContractStatus(ctx, "contract_2", models.ContractExpired))
		got, err := storage.GetContract(ctx, "contract_2")
		require.NoError(t, err)
		assert.Equal(t, models.ContractExpired, got.Status)
		assert.True(t, got.EffectiveDate.Equal(c.EffectiveDate))

		_, err = storage.GetContract(ctx, "missing")
		assert.True(t, errors.Is(err, apperr.NotFound))
	})

	t.Run("subscriptions and billing", func(t *testing.T) {
		product, err := storage.GetProduct(ctx, "prod_4")
		require.NoError(t, err)

		sub := models.Subscription{
			ID: "sub_new", UserID: "user_2", ProductID: product.ID, Product: product,
			StartDate: day(2024, 1, 31), NextBillingDate: day(2024, 2, 29),
			Status: models.SubscriptionActive, Price: product.RegularPrice,
		}
		first := models.Invoice{ID: "inv_new", SubscriptionID: sub.ID, ProductName: product.Name,
			BillingDate: sub.StartDate, Amount: sub.Price, Status: models.InvoicePending}
		require.NoError(t, storage.CreateSubscription(ctx, sub, first))

		got, err := storage.GetSubscription(ctx, "sub_new")
		require.NoError(t, err)
		assert.Equal(t, product.Name, got.Product.Name)

		due, err := storage.ListDueSubscriptions(ctx, day(2024, 3, 1))
		require.NoError(t, err)
		ids := make([]string, 0, len(due))
		for _, d := range due {
			ids = append(ids, d.ID)
		}
		assert.ElementsMatch(t, []string{"sub_1", "sub_2", "sub_new"}, ids)

		inv := models.Invoice{ID: "inv_next", SubscriptionID: "sub_new", ProductName: product.Name,
			BillingDate: day(2024, 2, 29), Amount: sub.Price, Status: models.InvoicePending}
		require.NoError(t, storage.AdvanceBilling(ctx, "sub_new", day(2024, 3, 31), &inv))

		exists, err := storage.InvoiceExists(ctx, "sub_new", day(2024, 2, 29))
		require.NoError(t, err)
		assert.True(t, exists)

		invoices, err := storage.ListInvoicesByUser(ctx, "user_2")
		require.NoError(t, err)
		require.Len(t, invoices, 2)
		assert.Equal(t, "inv_next", invoices[0].ID)

		require.NoError(t, storage.UpdateSubscriptionStatus(ctx, "sub_new", models.SubscriptionCanceled))
		counts, err := storage.CountSubscriptionsByUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts["user_1"])
		assert.Equal(t, 1, counts["user_2"])

		assert.True(t, errors.Is(storage.AdvanceBilling(ctx, "missing", day(2024, 1, 1), nil), apperr.NotFound))
	})
}
