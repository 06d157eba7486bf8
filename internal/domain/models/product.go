package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category — категория товара, соответствует enum product_category в БД.
type Category string

const (
	CategoryElectronics  Category = "electronics"
	CategoryBooks        Category = "books"
	CategoryClothing     Category = "clothing"
	CategoryHomeDecor    Category = "home_decor"
	CategorySports       Category = "sports"
	CategoryFood         Category = "food"
	CategoryToys         Category = "toys"
	CategoryAutomotive   Category = "automotive"
	CategoryHealthBeauty Category = "health_beauty"
	CategoryOther        Category = "other"
)

// Valid проверяет, что категория входит в закрытый список.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryBooks, CategoryClothing, CategoryHomeDecor,
		CategorySports, CategoryFood, CategoryToys, CategoryAutomotive,
		CategoryHealthBeauty, CategoryOther:
		return true
	}
	return false
}

// Product представляет товар, выставленный продавцом.
// Инвариант: Quantity >= 0 после любой зафиксированной транзакции.
type Product struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Name        string
	Description *string
	Price       decimal.Decimal // numeric(10,2), цена за единицу
	Quantity    int
	ImageURL    *string
	Category    Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SellerOrderedProduct — товар продавца вместе с суммарным заказанным количеством
// по всем позициям заказов, ссылающимся на него.
type SellerOrderedProduct struct {
	Product              *Product
	TotalOrderedQuantity int
}
