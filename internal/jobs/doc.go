// Package jobs models the lifecycle of long-running backend jobs and polls
// their status feeds.
//
// Every job kind (single image, carousel, agent, video) owns one Status. A
// Status changes only through Apply, which merges a partial Update using the
// rules the rest of the client relies on: absent fields keep their previous
// value, percent never moves backwards while a job runs, the cancel flag is a
// one-way latch for the lifetime of a job instance, and terminal phases carry
// exactly one of a result or an error message.
//
// Poller runs at most one status loop per job kind. Ticks are serialized, so a
// slow response delays the next request instead of overlapping it, and
// responses are applied in request order.
package jobs
