package domain

import "time"

// Record is one validated person entry. Emails are stored lower-cased, so the
// unique index on email is effectively case-insensitive.
type Record struct {
	ID        int64     `csv:"-"     db:"id"         json:"id"`
	Name      string    `csv:"name"  db:"name"       json:"name"`
	Email     string    `csv:"email" db:"email"      json:"email"`
	Age       int       `csv:"age"   db:"age"        json:"age"`
	CreatedAt time.Time `csv:"-"     db:"created_at" json:"created_at"`
}
