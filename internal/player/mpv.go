package player

import (
	"context"

	"reclink/internal/media"
)

// MPV implements the Player interface for mpv.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return available("mpv") }

func (m *MPV) Play(ctx context.Context, res media.Resolved, title, referer string) error {
	return run(ctx, "mpv", mpvArgs(res, title, referer))
}

// mpvArgs builds mpv-style flags, shared with players that accept them.
func mpvArgs(res media.Resolved, title, referer string) []string {
	args := []string{
		res.MediaURL,
		"--force-media-title=" + title,
		"--really-quiet",
	}
	if referer != "" {
		args = append(args, "--referrer="+referer)
	}
	switch res.MediaType {
	case media.Image:
		// Stills would otherwise close immediately.
		args = append(args, "--keep-open=yes", "--image-display-duration=inf")
	case media.Audio:
		args = append(args, "--force-window=yes")
	}
	return args
}
