package player

import (
	"context"

	"reclink/internal/media"
)

// Generic implements the Player interface for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return available(g.name) }

func (g *Generic) Play(ctx context.Context, res media.Resolved, title, referer string) error {
	args := mpvArgs(res, title, referer)
	if g.name == "iina" {
		// iina passes mpv options through with an --mpv- prefix.
		for i := 1; i < len(args); i++ {
			args[i] = "--mpv-" + args[i][2:]
		}
	}
	return run(ctx, g.name, args)
}
