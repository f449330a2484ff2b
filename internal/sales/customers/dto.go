package customers

type CustomerRequest struct {
	Cedula  string `json:"cedula" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Address string `json:"address" validate:"omitempty,max=300"`
}
