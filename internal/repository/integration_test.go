package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront/internal/model"
)

var allTables = []string{"order_reservations", "orders", "products", "profiles", "users"}

func seedProduct(t *testing.T, repo ProductRepository, name string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name: name, Description: "Desc", Category: "Tops",
		Price: decimal.NewFromInt(1500), Stock: stock, Sizes: []string{"S", "M"},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := &model.User{Email: "test@example.com", Password: "hashed"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	err = repo.Create(ctx, &model.User{Email: "test@example.com", Password: "x"})
	assert.ErrorIs(t, err, model.ErrUserAlreadyExists)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileRepo_EnsureProfile(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	users := NewUserRepository(testPool)
	profiles := NewProfileRepository(testPool)
	ctx := context.Background()

	user := &model.User{Email: "p@example.com", Password: "h"}
	require.NoError(t, users.Create(ctx, user))

	role, err := profiles.EnsureProfile(ctx, user.ID, user.Email)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	_, err = testPool.Exec(ctx, `UPDATE profiles SET role = 'admin' WHERE id = $1`, user.ID)
	require.NoError(t, err)

	role, err = profiles.EnsureProfile(ctx, user.ID, user.Email)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)
}

func TestProductRepo_CRUD(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	product := seedProduct(t, repo, "Test", 100)
	assert.NotEqual(t, uuid.Nil, product.ID)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", found.Name)
	assert.Equal(t, []string{"S", "M"}, found.Sizes)

	product.Name = "Updated"
	require.NoError(t, repo.Update(ctx, product))

	require.NoError(t, repo.UpdateStock(ctx, product.ID, 7))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Updated", found.Name)
	assert.Equal(t, 7, found.Stock)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Nil(t, found)
}

func TestProductRepo_ListFilters(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	hoodie := seedProduct(t, repo, "Black Hoodie", 5)
	seedProduct(t, repo, "Cap", 1)
	archived := seedProduct(t, repo, "Old Hoodie", 3)
	archived.Archived = true
	require.NoError(t, repo.Update(ctx, archived))

	got, err := repo.List(ctx, ProductFilter{Search: "hood"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hoodie.ID, got[0].ID)

	got, err = repo.List(ctx, ProductFilter{Search: "hood", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.List(ctx, ProductFilter{Category: "Shoes"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.List(ctx, ProductFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrderRepo_CreateDecrementsStock(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	ctx := context.Background()

	p := seedProduct(t, products, "Hoodie", 5)
	order := &model.Order{
		CustomerEmail: "a@example.com",
		TotalPrice:    decimal.NewFromInt(3000),
		Items:         []model.OrderItem{{Name: "Hoodie", Price: decimal.NewFromInt(1500), Quantity: 2}},
		Status:        model.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, order, []model.StockReservation{{ProductID: p.ID, Quantity: 2}}))

	found, _ := products.GetByID(ctx, p.ID)
	assert.Equal(t, 3, found.Stock)

	got, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.Items[0].Name, got.Items[0].Name)
	assert.True(t, order.TotalPrice.Equal(got.TotalPrice))
}

func TestOrderRepo_CreateInsufficientStockRollsBack(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	ctx := context.Background()

	plenty := seedProduct(t, products, "Hoodie", 5)
	scarce := seedProduct(t, products, "Cap", 1)
	order := &model.Order{
		CustomerEmail: "a@example.com",
		TotalPrice:    decimal.NewFromInt(4000),
		Items:         []model.OrderItem{{Name: "Hoodie", Price: decimal.NewFromInt(1500), Quantity: 2}},
		Status:        model.OrderStatusPending,
	}
	err := orders.Create(ctx, order, []model.StockReservation{
		{ProductID: plenty.ID, Quantity: 2},
		{ProductID: scarce.ID, Quantity: 2},
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	found, _ := products.GetByID(ctx, plenty.ID)
	assert.Equal(t, 5, found.Stock)

	all, err := orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrderRepo_DeleteOnlyCancelled(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	ctx := context.Background()

	p := seedProduct(t, products, "Hoodie", 5)
	order := &model.Order{
		CustomerEmail: "a@example.com",
		TotalPrice:    decimal.NewFromInt(1500),
		Items:         []model.OrderItem{{Name: "Hoodie", Price: decimal.NewFromInt(1500), Quantity: 1}},
		Status:        model.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, order, []model.StockReservation{{ProductID: p.ID, Quantity: 1}}))

	_, err := orders.DeleteCancelled(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotCancelled)

	ok, err := orders.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	released, err := orders.DeleteCancelled(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.StockReservation{{ProductID: p.ID, Quantity: 1}}, released)

	found, _ := products.GetByID(ctx, p.ID)
	assert.Equal(t, 5, found.Stock)

	gone, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = orders.DeleteCancelled(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderRepo_ReleaseOnce(t *testing.T) {
	requireDB(t)
	cleanupTable(t, allTables...)

	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	ctx := context.Background()

	p := seedProduct(t, products, "Hoodie", 5)
	order := &model.Order{
		CustomerEmail: "a@example.com",
		TotalPrice:    decimal.NewFromInt(4500),
		Items:         []model.OrderItem{{Name: "Hoodie", Price: decimal.NewFromInt(1500), Quantity: 3}},
		Status:        model.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, order, []model.StockReservation{{ProductID: p.ID, Quantity: 3}}))

	released, err := orders.ReleaseReservations(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, released, 1)

	released, err = orders.ReleaseReservations(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, released)

	found, _ := products.GetByID(ctx, p.ID)
	assert.Equal(t, 5, found.Stock)
}
