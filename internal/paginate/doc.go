// Package paginate holds the building blocks of extraction rules: a
// Collector that enforces the result cap and records skipped events, and
// the pagination strategies that walk a venue's listing pages.
//
// A strategy navigates; a PageCollector turns the current document into
// events. Strategies stop when the collector is full, so a capped rule never
// requests a page it does not need.
package paginate
