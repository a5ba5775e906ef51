package ui

import (
	"context"

	"fyne.io/fyne/v2"
)

// FyneNotifier delivers dispatch notifications through the desktop
// notification service.
type FyneNotifier struct {
	App fyne.App
}

// RequestPermission always succeeds: desktop drivers deliver notifications
// without a runtime grant.
func (n FyneNotifier) RequestPermission(ctx context.Context) error {
	return ctx.Err()
}

// Notify sends a notification. It does not wait for delivery.
func (n FyneNotifier) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.App.SendNotification(fyne.NewNotification(title, body))
	return nil
}
