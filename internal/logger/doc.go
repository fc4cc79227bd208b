// Package logger provides leveled, structured logging for the scraper.
//
// Messages carry a Fields map of structured context (venue, rule, run id and
// so on) and an optional error. Output is rendered by charmbracelet/log as
// human readable text on a terminal, or as JSON/logfmt lines for machines.
//
// Example usage:
//
//	logger.Info("rule finished", logger.Fields{
//	    "venue":  "Bimbos",
//	    "events": 12,
//	})
//
//	logger.Error("rule failed", logger.Fields{"venue": "Fillmore"}, err)
package logger
