package domain

import (
	"fmt"
	"strings"
)

// Target selects which backends an ingestion or retrieval call touches.
type Target string

const (
	TargetAuto   Target = "auto"
	TargetLocal  Target = "local"
	TargetRemote Target = "remote"
)

// ParseTarget converts a mode string into a Target. Empty means auto and
// "qdrant" is accepted as an alias for remote.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TargetAuto, nil
	case "local":
		return TargetLocal, nil
	case "remote", "qdrant":
		return TargetRemote, nil
	default:
		return "", fmt.Errorf("%w: %q (want auto, local or remote)", ErrInvalidTarget, s)
	}
}

func (t Target) String() string { return string(t) }

// Selection is the set of backends a single call will use.
type Selection struct {
	Remote bool
	Local  bool
}

// Resolve decides which backends to use for target given the live remote availability.
//
// Auto mode uses the remote opportunistically and the local backend always, so a
// healthy remote does not stop local writes or reads.
func Resolve(target Target, remoteAvailable bool) (Selection, error) {
	switch target {
	case TargetRemote:
		if !remoteAvailable {
			return Selection{}, fmt.Errorf("remote target: %w", ErrBackendUnavailable)
		}
		return Selection{Remote: true}, nil
	case TargetLocal:
		return Selection{Local: true}, nil
	case TargetAuto, "":
		return Selection{Remote: remoteAvailable, Local: true}, nil
	default:
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidTarget, string(target))
	}
}
