package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Reference        string             `bson:"reference" json:"reference"`
	Items            []CartItem         `bson:"items" json:"items"`
	Total            int64              `bson:"total" json:"total"`
	Currency         string             `bson:"currency" json:"currency"`
	Status           OrderStatus        `bson:"status" json:"status"`
	AuthorizationURL string             `bson:"authorization_url,omitempty" json:"authorization_url,omitempty"`
	GatewayResponse  string             `bson:"gateway_response,omitempty" json:"gateway_response,omitempty"`
	PaidAt           *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
