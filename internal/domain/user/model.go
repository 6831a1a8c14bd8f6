package user

import "time"

// User - владелец облачных слотов сохранений.
type User struct {
	ID        int
	Login     string
	Password  string // bcrypt-хэш
	CreatedAt time.Time
}
