package models

// Customer представляет покупателя
type Customer struct {
	ID       int64
	Email    string
	PassHash []byte
	IsActive bool
	IsStaff  bool
}
