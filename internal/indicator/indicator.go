// Package indicator shows the persistent "phase running" notification
// through Hyprland or the desktop notification service.
package indicator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/config"
	"github.com/rbright/debatebell/internal/hypr"
)

const (
	dispatchTimeout = 400 * time.Millisecond
	// hyprTimeoutMS keeps the Hyprland notification up for a long speech;
	// Refresh re-posts it on every bell.
	hyprTimeoutMS = 60 * 60 * 1000
	hyprIcon      = 1
	hyprColour    = "rgb(89b4fa)"
)

// Notifier is the concrete alert.Notifier used by runtime sessions.
// It routes through Hyprland or desktop DBus based on config backend.
type Notifier struct {
	cfg      config.NotificationConfig
	messages messages

	mu                    sync.Mutex
	text                  string
	shown                 bool
	desktopNotificationID uint32
}

// New creates a notifier from config.
func New(cfg config.NotificationConfig) *Notifier {
	return &Notifier{
		cfg:      cfg,
		messages: indicatorMessagesFromEnv(),
	}
}

// Show posts the running notification for label.
func (n *Notifier) Show(ctx context.Context, label string) error {
	text := n.messages.summary(label)
	n.mu.Lock()
	n.text = text
	n.shown = true
	n.mu.Unlock()

	if !n.cfg.Enable {
		return nil
	}
	return n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, text)
	})
}

// Refresh re-posts the current notification so a bell is surfaced again.
// It does nothing when no notification is showing.
func (n *Notifier) Refresh(ctx context.Context) error {
	n.mu.Lock()
	text, shown := n.text, n.shown
	n.mu.Unlock()

	if !n.cfg.Enable || !shown {
		return nil
	}
	return n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, text)
	})
}

// Dismiss removes the notification.
func (n *Notifier) Dismiss(ctx context.Context) error {
	n.mu.Lock()
	shown := n.shown
	n.shown = false
	n.mu.Unlock()

	if !n.cfg.Enable || !shown {
		return nil
	}
	return n.run(ctx, n.dismiss)
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notify dispatches output through the configured backend.
func (n *Notifier) notify(ctx context.Context, text string) error {
	if n.desktop() {
		return n.notifyDesktop(ctx, text)
	}
	return hypr.Notify(ctx, hyprIcon, hyprTimeoutMS, hyprColour, text)
}

// dismiss removes output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable, non-expiring desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "debatebell"
	}

	id, err := desktopNotify(ctx, desktopNotification{
		appName:   appName,
		replaceID: replaceID,
		summary:   text,
		body:      n.messages.body,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes a notification operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) error {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		return fmt.Errorf("notification dispatch: %w", err)
	}
	return nil
}
