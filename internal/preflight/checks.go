package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"atlas/internal/config"
	"atlas/internal/gateway"
	"atlas/internal/services"
)

const backendCheckTimeout = 5 * time.Second

// CheckBackend verifies that the backend answers the Graph configuration
// endpoint. The second result reports whether Graph publishing is fully
// configured; it is only meaningful when the first one passed.
func CheckBackend(ctx context.Context, cfg *config.Config) (Result, Result) {
	const name = "Backend"
	graph := Result{Name: "Instagram Graph", Optional: true}

	client, err := gateway.New(gateway.ConfigFrom(cfg))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}, graph
	}

	checkCtx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	status, err := client.GraphConfigStatus(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}, graph
	}

	backend := Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", cfg.Backend.BaseURL)}
	switch {
	case status.GraphReady:
		graph.Passed = true
		graph.Detail = "Ready"
	case status.RequiredCount > 0:
		graph.Detail = fmt.Sprintf("%d/%d values configured", status.FilledCount, status.RequiredCount)
	default:
		graph.Detail = "Not configured"
	}
	return backend, graph
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeBackendError produces a human-readable summary for backend check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend unreachable)"
	}
	if errors.Is(err, services.ErrTransient) {
		return fmt.Sprintf("unreachable (%v)", err)
	}
	return err.Error()
}
