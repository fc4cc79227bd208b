// Package scraper runs venue extraction rules.
//
// A Rule scrapes one venue through a shared browser.Session. The Runner
// executes a Registry of rules, isolating failures according to its
// RunPolicy, normalizing what the rules produce and collecting everything
// into an ordered Result keyed by venue name.
//
// Basic usage:
//
//	runner := scraper.NewRunner(registry, factory,
//		scraper.WithPolicy(scraper.Rescue),
//		scraper.WithWorkers(2),
//	)
//	result, err := runner.Run(ctx, nil)
package scraper
