package models

import "time"

// IterationDate represents the ITERATION_DATE table
type IterationDate struct {
	Iteration int       `db:"iteration" json:"iteration"`
	Date      time.Time `db:"date" json:"date"`
}
