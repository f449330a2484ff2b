package customers

import "time"

type Customer struct {
	ID        int64     `json:"id"`
	Cedula    string    `json:"cedula"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
