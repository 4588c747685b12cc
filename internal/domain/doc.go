// Package domain contains the storefront's core entities: registered users,
// cart items and the cart itself. It holds the rules that must hold no matter
// where the data lives (one item per product, quantities of at least one,
// totals derived from items) and knows nothing about storage or sessions.
package domain
