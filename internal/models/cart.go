package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// CartItem keeps the price the course had when it was added.
type CartItem struct {
	CourseID primitive.ObjectID `bson:"course_id" json:"course_id"`
	Title    string             `bson:"title" json:"title"`
	Plan     string             `bson:"plan" json:"plan"`
	Price    int64              `bson:"price" json:"price"`
	AddedAt  time.Time          `bson:"added_at" json:"added_at"`
}

func (c *Cart) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Price
	}
	return total
}

// Put adds item, replacing an existing item for the same course.
func (c *Cart) Put(item CartItem) {
	for i := range c.Items {
		if c.Items[i].CourseID == item.CourseID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove drops the item for courseID and reports whether one was present.
func (c *Cart) Remove(courseID primitive.ObjectID) bool {
	for i := range c.Items {
		if c.Items[i].CourseID == courseID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
