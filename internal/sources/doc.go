// Package sources holds one extraction rule per venue and the default rule
// registry.
//
// Rules are assembled from paginate strategies. Constructors take the
// venue's registry entry so URLs, limits and wait times live in venues.yaml
// rather than in code.
package sources
