package audio

import (
	"context"
	"errors"
	"os/exec"

	"github.com/tartampluch/go-noor/internal/config"
)

// ErrPlayerUnavailable is returned when no playback command is configured.
var ErrPlayerUnavailable = errors.New(config.ErrPlayerUnavailable)

// Player renders a handle to the speakers. Play blocks until playback ends
// or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, h *Handle) error
}

// ExecPlayer delegates playback to an external command that accepts a file
// path or URL as its last argument, such as ffplay or mpv.
type ExecPlayer struct {
	Command []string
}

// Play implements Player.
func (p ExecPlayer) Play(ctx context.Context, h *Handle) error {
	if len(p.Command) == 0 || p.Command[0] == "" {
		return ErrPlayerUnavailable
	}

	args := append(append([]string{}, p.Command[1:]...), h.Source)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	return cmd.Run()
}
