// Package config loads scraper settings.
//
// Settings come from built-in defaults, an optional json5 file
// (show-scraper.json5) with an optional show-scraper.local.json5 merged over
// it, and finally the process environment. Command-line flags are applied on
// top by the cli package.
package config
