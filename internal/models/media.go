package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is an uploaded object served from the media bucket.
type Media struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Key         string             `bson:"key" json:"key"`
	Filename    string             `bson:"filename" json:"filename"`
	URL         string             `bson:"url" json:"url"`
	ContentType string             `bson:"content_type" json:"content_type"`
	Size        int64              `bson:"size" json:"size"`
	Kind        MediaKind          `bson:"kind" json:"kind"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
