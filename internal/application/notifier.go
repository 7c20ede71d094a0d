package application

import (
	"context"
	"log/slog"

	"micrecorder/internal/domain"
)

// Presenter shows the foreground notification somewhere the user can see it.
type Presenter interface {
	EnsureChannel(ctx context.Context, ch domain.Channel) error
	Show(ctx context.Context, n domain.Notification) error
	Dismiss(ctx context.Context, id int) error
}

// NoopPresenter discards every notification.
type NoopPresenter struct{}

func (NoopPresenter) EnsureChannel(_ context.Context, _ domain.Channel) error { return nil }
func (NoopPresenter) Show(_ context.Context, _ domain.Notification) error     { return nil }
func (NoopPresenter) Dismiss(_ context.Context, _ int) error                  { return nil }

// LogPresenter renders notifications as log records.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p *LogPresenter) EnsureChannel(_ context.Context, ch domain.Channel) error {
	p.Logger.Debug("notification channel registered", "channel", ch.ID, "importance", ch.Importance)
	return nil
}

func (p *LogPresenter) Show(_ context.Context, n domain.Notification) error {
	labels := make([]string, 0, len(n.Actions))
	for _, a := range n.Actions {
		labels = append(labels, a.Label)
	}
	p.Logger.Info("notification",
		"id", n.ID,
		"title", n.Title,
		"text", n.Text,
		"ongoing", n.Ongoing,
		"actions", labels,
	)
	return nil
}

func (p *LogPresenter) Dismiss(_ context.Context, id int) error {
	p.Logger.Info("notification dismissed", "id", id)
	return nil
}
