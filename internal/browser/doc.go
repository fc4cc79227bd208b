// Package browser provides the Session Handle shared by extraction rules.
//
// A Session drives one browser-like client: it navigates, queries elements,
// runs scripts and manages tabs and frames. Two backends implement it:
// Chrome, a headless Chromium driven through chromedp, and Static, a plain
// HTTP client that parses server-rendered HTML with goquery.
//
// Query results are Elements: snapshots of the matched DOM subtree that can
// be inspected without further round trips, plus a live handle used for
// clicks. Zero matches is an empty slice, never an error; indexed access to
// a missing element (TextOf, AttrOf, QueryOne) returns ErrElementNotFound.
//
// InScopedTab is the only sanctioned way to borrow a session for a detail
// page: the tab it opens is always closed and the previous tab is always
// restored, whatever the callback does.
package browser
