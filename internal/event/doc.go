// Package event provides the raw and normalized show records produced by
// extraction rules, and the functions that turn one into the other.
//
// Dates are calendar days. Several venues publish only a month and a day, so
// a Day may carry no year; such days stay year-ambiguous in published data and
// are resolved to their nearest future occurrence by ResolveYear when read.
// Each normalized event has a deterministic SHA1 key built from its venue,
// day and title, which the relational sink and Diff use as its identity.
package event
