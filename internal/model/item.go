package model

import "github.com/shopspring/decimal"

// Item is one catalog entry. The min prices are nullable: an item may be
// listed only as tradable, only as non-tradable, or both.
type Item struct {
	Name                string              `json:"name"`
	MinPriceNonTradable decimal.NullDecimal `json:"min_price_non_tradable"`
	MinPriceTradable    decimal.NullDecimal `json:"min_price_tradable"`
}
