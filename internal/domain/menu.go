package domain

import (
	"strings"
	"time"
)

type DishStatus string

const (
	DishAvailable   DishStatus = "available"
	DishUnavailable DishStatus = "unavailable"
)

type Dish struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Price       int64      `json:"price"`
	Status      DishStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Order snapshots the dish name and price at the time it was placed.
type Order struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"company_name"`
	DishID      string    `json:"dish_id"`
	DishName    string    `json:"dish_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	TotalPrice  int64     `json:"total_price"`
	OrderDate   time.Time `json:"order_date"`
	Status      string    `json:"status"`
}

type OrderFilter struct {
	From, To *time.Time
	Company  string // case-insensitive substring
	Dish     string // case-insensitive substring
	Limit    int
}

type GuestProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	IDCard    string    `json:"id_card,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (f OrderFilter) Matches(o Order) bool {
	if f.From != nil && o.OrderDate.Before(*f.From) {
		return false
	}
	if f.To != nil && o.OrderDate.After(*f.To) {
		return false
	}
	if f.Company != "" && !containsFold(o.CompanyName, f.Company) {
		return false
	}
	if f.Dish != "" && !containsFold(o.DishName, f.Dish) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
