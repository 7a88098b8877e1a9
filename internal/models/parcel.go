package models

import "time"

type FavoriteParcel struct {
	ParcelID  string    `json:"parcel_id" example:"037-120-0045"`
	County    string    `json:"county" example:"Hillsborough"`
	Label     *string   `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
