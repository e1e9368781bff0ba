package domain

import "time"

// Car is a fleet vehicle referenced by incidents. Read-only here.
type Car struct {
	ID    int64  `json:"id"`
	VIN   string `json:"vin"`
	Label string `json:"label"`
}

// CarReading is an odometer snapshot an incident can reference.
type CarReading struct {
	ID        int64     `json:"id"`
	CarID     int64     `json:"carId"`
	Odometer  int64     `json:"odometer"`
	CreatedAt time.Time `json:"createdAt"`
}
