// Package preflight provides readiness checks for the backend and the
// filesystem paths Atlas depends on.
//
// The daemon logs RunAll results at startup and the CLI status command
// renders them, so a misconfigured backend URL shows up before the first job
// fails. Checks never return errors; failures are reported in Result.Detail.
package preflight
