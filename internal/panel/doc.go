// Package panel serves the local control surface: a JSON API over the
// workflow session plus a websocket that pushes every snapshot.
//
// All routes live under /api except /ws. When a token is configured every
// request must carry it as a bearer header; websocket clients that cannot
// set headers may pass it as the token query parameter instead.
package panel
