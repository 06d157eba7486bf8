package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo — поддельное хранилище пользователей в памяти.
type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	for _, existing := range f.users {
		if existing.UserName == user.UserName {
			return nil, storage.ErrUserNameTaken
		}
		if existing.PhoneNumber == user.PhoneNumber {
			return nil, storage.ErrPhoneNumberTaken
		}
	}
	user.ID = uuid.New()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByPhone(_ context.Context, phoneNumber int64) (*models.User, error) {
	for _, user := range f.users {
		if user.PhoneNumber == phoneNumber {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByUserName(_ context.Context, userName string) (*models.User, error) {
	for _, user := range f.users {
		if user.UserName == userName {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// fakeProductRepo хранит товары в памяти. Транзакционные методы игнорируют tx:
// хореографию Begin/Commit/Rollback проверяет sqlmock.
type fakeProductRepo struct {
	products map[uuid.UUID]*models.Product
	lockErr  error
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) CreateProduct(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) ListProducts(_ context.Context, _, _ int) ([]*models.Product, error) {
	result := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeProductRepo) ListProductsBySeller(_ context.Context, sellerID uuid.UUID, _, _ int) ([]*models.Product, error) {
	var result []*models.Product
	for _, p := range f.products {
		if p.SellerID == sellerID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakeProductRepo) ListProductsByCategory(_ context.Context, category models.Category, excludeID *uuid.UUID, _, _ int) ([]*models.Product, error) {
	var result []*models.Product
	for _, p := range f.products {
		if p.Category != category {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeProductRepo) SearchProducts(_ context.Context, _ string, _, _ int) ([]*models.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) UpdateProduct(_ context.Context, product *models.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return storage.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) LockProductByIDTx(_ context.Context, _ *sql.Tx, id uuid.UUID) (*models.Product, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) UpdateProductQuantityTx(_ context.Context, _ *sql.Tx, id uuid.UUID, newQuantity int) error {
	product, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	product.Quantity = newQuantity
	return nil
}

func (f *fakeProductRepo) RestoreProductQuantityTx(_ context.Context, _ *sql.Tx, id uuid.UUID, delta int) error {
	product, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	product.Quantity += delta
	return nil
}

func (f *fakeProductRepo) GetSellerOrderedProducts(_ context.Context, sellerID uuid.UUID) ([]*models.SellerOrderedProduct, error) {
	return nil, nil
}

// fakeOrderRepo хранит заказы в памяти.
type fakeOrderRepo struct {
	orders    map[uuid.UUID]*models.Order
	createErr error
	itemErr   error
}

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) CreateOrderTx(_ context.Context, _ *sql.Tx, buyerID uuid.UUID, totalAmount decimal.Decimal, status models.OrderStatus) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	order := &models.Order{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		TotalAmount: totalAmount,
		Status:      status,
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(_ context.Context, _ *sql.Tx, item *models.OrderLineItem) error {
	if f.itemErr != nil {
		return f.itemErr
	}
	order, ok := f.orders[item.OrderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	order.Items = append(order.Items, item)
	return nil
}

func (f *fakeOrderRepo) LockOrderWithItemsTx(_ context.Context, _ *sql.Tx, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateOrderStatusTx(_ context.Context, _ *sql.Tx, orderID uuid.UUID, status models.OrderStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrdersByBuyer(_ context.Context, buyerID uuid.UUID, _, _ int) ([]*models.Order, error) {
	var result []*models.Order
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			result = append(result, o)
		}
	}
	return result, nil
}

// fakeReviewRepo эмулирует upsert по паре (product_id, user_id).
type fakeReviewRepo struct {
	reviews map[[2]uuid.UUID]*models.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[[2]uuid.UUID]*models.Review)}
}

func (f *fakeReviewRepo) UpsertReview(_ context.Context, review *models.Review) (*models.Review, error) {
	key := [2]uuid.UUID{review.ProductID, review.UserID}
	if existing, ok := f.reviews[key]; ok {
		existing.Rating = review.Rating
		existing.Comment = review.Comment
		return existing, nil
	}
	review.ID = uuid.New()
	f.reviews[key] = review
	return review, nil
}

func (f *fakeReviewRepo) GetReviewsByProduct(_ context.Context, productID uuid.UUID, _, _ int) ([]*models.Review, error) {
	var result []*models.Review
	for _, r := range f.reviews {
		if r.ProductID == productID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeReviewRepo) GetAverageRating(_ context.Context, productID uuid.UUID) (float64, error) {
	sum, count := 0, 0
	for _, r := range f.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}
