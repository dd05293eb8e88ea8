// Package process provides generic subprocess lifecycle management.
//
// This package is designed for managing long-running child processes like
// network daemons (wpa_supplicant and similar) that the bridge depends on.
//
// Features:
//   - Start/stop subprocess with graceful shutdown (SIGTERM then SIGKILL)
//   - Automatic restart on failure with exponential backoff
//   - Watchdog health checks that kill and restart a hung process
//   - Line-by-line log relay from subprocess stdout/stderr
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:               "wpa_supplicant",
//	    Binary:             "/sbin/wpa_supplicant",
//	    Args:               []string{"-i", "wlan0", "-c", "/etc/wpa_supplicant.conf"},
//	    RestartOnFailure:   true,
//	    RestartDelay:       time.Second,
//	    MaxRestartAttempts: 10,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
