package models

import "time"

type Review struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     string    `json:"userId" bson:"userId"`
	Username   string    `json:"username,omitempty" bson:"username,omitempty"`
	MovieID    string    `json:"movieId" bson:"movieId"`
	Rating     int       `json:"rating" bson:"rating"`
	ReviewText string    `json:"reviewText" bson:"reviewText"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
