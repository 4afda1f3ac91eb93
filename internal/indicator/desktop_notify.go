package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	urgencyCritical = "2"
)

// desktopNotification is one Notify call. Critical urgency keeps it on screen
// until closed and resident keeps it there after the user clicks it.
type desktopNotification struct {
	appName   string
	replaceID uint32
	summary   string
	body      string
}

func (d desktopNotification) args() []string {
	return []string{
		"susssasa{sv}i",
		d.appName,
		strconv.FormatUint(uint64(d.replaceID), 10),
		"",
		d.summary,
		d.body,
		"0",
		"2", "urgency", "y", urgencyCritical, "resident", "b", "true",
		"0",
	}
}

// desktopNotify posts d and returns the ID the server assigned.
func desktopNotify(ctx context.Context, d desktopNotification) (uint32, error) {
	out, err := busctl(ctx, "Notify", d.args()...)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}

func busctl(ctx context.Context, method string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyService, notifyPath, notifyService, method}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("busctl %s: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}
