package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the document stored in the products collection.
// JSON names follow the stored document so responses carry _id, createdAt and __v.
type Product struct {
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Price       float64            `json:"price" bson:"price"`
	Phone       float64            `json:"phone" bson:"phone"`
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
	Version     int                `json:"__v" bson:"__v"`
}

// ProductFields are the four mutable fields, all present.
type ProductFields struct {
	Title       string
	Description string
	Price       float64
	Phone       float64
}

// ProductUpdate carries the fields supplied to an update. Nil fields are left untouched.
type ProductUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	Phone       *float64
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil && u.Phone == nil
}

// NewProduct builds a product stamped with the creation time.
// Stored timestamps have millisecond precision, so the stamp is truncated up front.
func NewProduct(f ProductFields, now time.Time) *Product {
	ts := now.UTC().Truncate(time.Millisecond)
	return &Product{
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		Phone:       f.Phone,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Apply copies the supplied update fields onto p.
// UpdatedAt keeps its creation value.
func (p *Product) Apply(u ProductUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
}
