package querycache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Resource names double as the table-level invalidation keys.
const (
	Users             = "users"
	Products          = "products"
	ProductCategories = "product_categories"
	Inventory         = "inventory"
	Customers         = "customers"
	Sales             = "sales"
	Commissions       = "commissions"
	ServiceRequests   = "service_requests"
	ServiceCategories = "service_categories"
)

// FilterToken hashes an arbitrary filter value into a short key segment.
func FilterToken(filter any) string {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "nofilter"
	}
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return fmt.Sprintf("%x", h.Sum64())
}
