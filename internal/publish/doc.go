// Package publish writes the result of a scraper run somewhere people can
// read it.
//
// Static writes JSON and iCalendar files through a Sink, either a local
// directory or an HTTP bucket, overwriting latest.json last so readers
// never see a half-published run. Incremental stores every event in the
// relational store as it is produced.
package publish
