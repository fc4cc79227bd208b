// Package cli implements the show-scraper command line.
//
// It wires configuration, logging, tracing and metrics around the scraper
// runner and offers four commands: run scrapes venues and publishes the
// result, sources lists the venue registry, serve exposes stored events
// over HTTP, and diff compares two published listings.
package cli
