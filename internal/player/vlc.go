package player

import (
	"context"

	"reclink/internal/media"
)

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return available("vlc") }

func (v *VLC) Play(ctx context.Context, res media.Resolved, title, referer string) error {
	return run(ctx, "vlc", vlcArgs(res, title, referer))
}

func vlcArgs(res media.Resolved, title, referer string) []string {
	args := []string{
		res.MediaURL,
		"--meta-title", title,
	}
	if referer != "" {
		args = append(args, "--http-referrer", referer)
	}
	if res.MediaType != media.Image {
		args = append(args, "--play-and-exit")
	}
	return args
}
