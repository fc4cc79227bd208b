// Package venue defines the venue reference data shared by every extraction
// rule: display names, regions, locations and per-rule scraping settings.
//
// The registry is a static, ordered list loaded once per run from an
// embedded YAML document (or an override file). Venues are immutable after
// loading; the order of the registry is the order rules run in and the key
// order of published results.
package venue
