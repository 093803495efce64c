// Package models holds the external representation of conversations and
// messages returned by the HTTP facade.
package models

import "time"

type Dialog struct {
	ID    int64      `json:"id"`
	Title string     `json:"title"`
	Date  *time.Time `json:"date"`
}
