package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Choice struct {
	Name  string          `json:"name" bson:"name"`
	Price decimal.Decimal `json:"price" bson:"price"`
}

type OptionGroup struct {
	Name        string   `json:"name" bson:"name"`
	Choices     []Choice `json:"choices" bson:"choices"`
	Required    bool     `json:"required" bson:"required"`
	MultiSelect bool     `json:"multiSelect" bson:"multi_select"`
}

type MenuItem struct {
	ID              string          `json:"id" bson:"_id"`
	RestaurantID    string          `json:"restaurant" bson:"restaurant_id"`
	Name            string          `json:"name" bson:"name"`
	Description     string          `json:"description" bson:"description"`
	Price           decimal.Decimal `json:"price" bson:"price"`
	Image           string          `json:"image,omitempty" bson:"image,omitempty"`
	Category        string          `json:"category" bson:"category"`
	Options         []OptionGroup   `json:"options,omitempty" bson:"options,omitempty"`
	Tags            []string        `json:"tags,omitempty" bson:"tags,omitempty"`
	IsVegetarian    bool            `json:"isVegetarian" bson:"is_vegetarian"`
	IsVegan         bool            `json:"isVegan" bson:"is_vegan"`
	IsGlutenFree    bool            `json:"isGlutenFree" bson:"is_gluten_free"`
	SpicyLevel      int             `json:"spicyLevel" bson:"spicy_level"` // 0..3
	IsAvailable     bool            `json:"isAvailable" bson:"is_available"`
	IsFeatured      bool            `json:"isFeatured" bson:"is_featured"`
	PreparationTime int             `json:"preparationTime" bson:"preparation_time"` // minutes
	CreatedAt       time.Time       `json:"createdAt" bson:"created_at"`
}

const DefaultPreparationMinutes = 15

type Restaurant struct {
	ID             string          `json:"id" bson:"_id"`
	OwnerID        string          `json:"owner" bson:"owner_id"`
	Name           string          `json:"name" bson:"name"`
	Description    string          `json:"description" bson:"description"`
	Cuisine        string          `json:"cuisine" bson:"cuisine"`
	Address        Address         `json:"address" bson:"address"`
	Phone          string          `json:"phone,omitempty" bson:"phone,omitempty"`
	Email          string          `json:"email,omitempty" bson:"email,omitempty"`
	Rating         float64         `json:"rating" bson:"rating"`
	PriceRange     string          `json:"priceRange" bson:"price_range"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee" bson:"delivery_fee"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount" bson:"min_order_amount"`
	IsActive       bool            `json:"isActive" bson:"is_active"`
	CreatedAt      time.Time       `json:"createdAt" bson:"created_at"`
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	Address      *Address  `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}
