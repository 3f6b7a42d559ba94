package repository

import "time"

// Account represents an accounts row. JWT holds the opened (plain) token;
// the repo seals it on write and opens it on read.
type Account struct {
	ID                 string
	PersonID           int64
	Name               string
	Instance           string
	JWT                string
	Current            bool
	DefaultSortType    string
	DefaultListingType string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
