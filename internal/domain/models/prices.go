package models

import "time"

// PriceBar is one daily close read from the price store.
type PriceBar struct {
	Symbol string
	Date   time.Time
	Close  float64
}
