package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/linemk/washint-market/internal/domain/models"
	"github.com/linemk/washint-market/internal/storage"
)

var productCols = []string{"id", "seller_id", "name", "description", "price", "quantity", "image_url", "category", "created_at", "updated_at"}

func TestGetUserByPhone_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_name", "phone_number", "password_hash", "created_at", "updated_at"}).
		AddRow(userID, "abebe", int64(911223344), []byte("hashed-password"), now, now)

	mock.ExpectQuery("SELECT id, user_name, phone_number, password_hash, created_at, updated_at FROM users WHERE phone_number = \\$1").
		WithArgs(int64(911223344)).WillReturnRows(rows)

	user, err := repo.GetUserByPhone(ctx, 911223344)
	assert.NoError(t, err, "Expected no error when user is found")
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "abebe", user.UserName)
	assert.Equal(t, int64(911223344), user.PhoneNumber)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByPhone_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_name", "phone_number", "password_hash", "created_at", "updated_at"})
	mock.ExpectQuery("SELECT id, user_name, phone_number, password_hash, created_at, updated_at FROM users WHERE phone_number = \\$1").
		WithArgs(int64(911000000)).WillReturnRows(rows)

	user, err := repo.GetUserByPhone(context.Background(), 911000000)
	assert.Error(t, err, "Expected error when user is not found")
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	userID := uuid.New()
	now := time.Now()

	query := regexp.QuoteMeta(`INSERT INTO users (user_name, phone_number, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`)
	mock.ExpectQuery(query).
		WithArgs("abebe", int64(911223344), []byte("hash")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(userID, now, now))

	user, err := repo.CreateUser(context.Background(), &models.User{
		UserName:    "abebe",
		PhoneNumber: 911223344,
		PassHash:    []byte("hash"),
	})
	assert.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProductByIDTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	ctx := context.Background()

	productID := uuid.New()
	sellerID := uuid.New()
	now := time.Now()

	tx, err := db.Begin()
	assert.NoError(t, err)

	rows := sqlmock.NewRows(productCols).
		AddRow(productID, sellerID, "Handwoven Basket", nil, "10.00", 5, nil, "home_decor", now, now)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = \\$1 FOR UPDATE NOWAIT").
		WithArgs(productID).WillReturnRows(rows)

	product, err := repo.LockProductByIDTx(ctx, tx, productID)
	assert.NoError(t, err)
	assert.Equal(t, productID, product.ID)
	assert.Equal(t, "Handwoven Basket", product.Name)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("10.00")), "price should scan as exact decimal")
	assert.Equal(t, 5, product.Quantity)
	assert.Equal(t, models.CategoryHomeDecor, product.Category)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProductByIDTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	productID := uuid.New()

	tx, err := db.Begin()
	assert.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = \\$1 FOR UPDATE NOWAIT").
		WithArgs(productID).WillReturnRows(sqlmock.NewRows(productCols))

	product, err := repo.LockProductByIDTx(context.Background(), tx, productID)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	assert.Nil(t, product)

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductQuantityTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	productID := uuid.New()

	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta("UPDATE products SET quantity = $1, updated_at = NOW() WHERE id = $2")
	mock.ExpectExec(query).WithArgs(2, productID).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateProductQuantityTx(context.Background(), tx, productID, 2))

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreProductQuantityTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewProductRepository(db)
	productID := uuid.New()

	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta("UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2")
	mock.ExpectExec(query).WithArgs(3, productID).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.RestoreProductQuantityTx(context.Background(), tx, productID, 3)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchProducts_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(productCols).
		AddRow(uuid.New(), uuid.New(), "Coffee Beans", "fresh roast", "7.50", 10, nil, "food", now, now).
		AddRow(uuid.New(), uuid.New(), "Coffee Grinder", nil, "25.00", 3, nil, "other", now, now)

	mock.ExpectQuery("SELECT .+ FROM products WHERE name ILIKE \\$1 OR description ILIKE \\$1").
		WithArgs("%coffee%", 20, 0).WillReturnRows(rows)

	products, err := repo.SearchProducts(context.Background(), "coffee", 20, 0)
	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Coffee Beans", products[0].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSellerOrderedProducts_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	sellerID := uuid.New()
	productID := uuid.New()
	now := time.Now()

	cols := append(append([]string{}, productCols...), "total_ordered_quantity")
	rows := sqlmock.NewRows(cols).
		AddRow(productID, sellerID, "Handwoven Basket", nil, "10.00", 2, nil, "home_decor", now, now, 7)

	mock.ExpectQuery("SELECT p\\.id, .+ FROM products p\\s+JOIN order_items oi ON p\\.id = oi\\.product_id").
		WithArgs(sellerID).WillReturnRows(rows)

	result, err := repo.GetSellerOrderedProducts(context.Background(), sellerID)
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, productID, result[0].Product.ID)
	assert.Equal(t, 7, result[0].TotalOrderedQuantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	buyerID := uuid.New()
	orderID := uuid.New()
	now := time.Now()

	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta(`INSERT INTO orders (buyer_id, total_amount, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`)
	total := decimal.RequireFromString("30.00")
	mock.ExpectQuery(query).
		WithArgs(buyerID, total, models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orderID, now, now))

	order, err := repo.CreateOrderTx(context.Background(), tx, buyerID, total, models.OrderStatusPending)
	assert.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(total))

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrderWithItemsTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	orderID := uuid.New()
	buyerID := uuid.New()
	productID := uuid.New()
	now := time.Now()

	tx, err := db.Begin()
	assert.NoError(t, err)

	orderRows := sqlmock.NewRows([]string{"id", "buyer_id", "total_amount", "status", "created_at", "updated_at"}).
		AddRow(orderID, buyerID, "30.00", "pending", now, now)
	mock.ExpectQuery("SELECT id, buyer_id, total_amount, status, created_at, updated_at\\s+FROM orders WHERE id = \\$1 FOR UPDATE").
		WithArgs(orderID).WillReturnRows(orderRows)

	itemRows := sqlmock.NewRows([]string{"order_id", "product_id", "quantity", "price_at_purchase", "created_at"}).
		AddRow(orderID, productID, 3, "10.00", now)
	mock.ExpectQuery("SELECT order_id, product_id, quantity, price_at_purchase, created_at\\s+FROM order_items WHERE order_id = \\$1").
		WithArgs(orderID).WillReturnRows(itemRows)

	order, err := repo.LockOrderWithItemsTx(context.Background(), tx, orderID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.NotNil(t, order.Items[0].ProductID)
	assert.Equal(t, productID, *order.Items[0].ProductID)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockOrderWithItemsTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	orderID := uuid.New()

	tx, err := db.Begin()
	assert.NoError(t, err)

	mock.ExpectQuery("SELECT id, buyer_id, total_amount, status, created_at, updated_at\\s+FROM orders WHERE id = \\$1 FOR UPDATE").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "total_amount", "status", "created_at", "updated_at"}))

	order, err := repo.LockOrderWithItemsTx(context.Background(), tx, orderID)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
	assert.Nil(t, order)

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusTx_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	repo := storage.NewOrderRepository(db)
	orderID := uuid.New()

	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta("UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2")
	mock.ExpectExec(query).WithArgs(models.OrderStatusShipped, orderID).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateOrderStatusTx(context.Background(), tx, orderID, models.OrderStatusShipped)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertReview_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewReviewRepository(db)
	reviewID := uuid.New()
	productID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	query := regexp.QuoteMeta(`INSERT INTO reviews (product_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, user_id)
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
		 RETURNING id, created_at, updated_at`)
	comment := "good quality"
	mock.ExpectQuery(query).
		WithArgs(productID, userID, 4, comment).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(reviewID, now, now))

	review, err := repo.UpsertReview(context.Background(), &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    4,
		Comment:   &comment,
	})
	assert.NoError(t, err)
	assert.Equal(t, reviewID, review.ID)
	assert.Equal(t, 4, review.Rating)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAverageRating_NoReviews(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewReviewRepository(db)
	productID := uuid.New()

	// COALESCE возвращает 0, когда отзывов нет
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))

	avg, err := repo.GetAverageRating(context.Background(), productID)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAverageRating_WithReviews(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewReviewRepository(db)
	productID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1")).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4.5))

	avg, err := repo.GetAverageRating(context.Background(), productID)
	assert.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	assert.NoError(t, mock.ExpectationsWereMet())
}
