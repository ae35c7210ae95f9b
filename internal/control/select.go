package control

import (
	"fmt"
	"strings"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
)

type Kind string

const (
	KindLQR Kind = "lqr"
	KindPID Kind = "pid"
)

func Kinds() []Kind { return []Kind{KindLQR, KindPID} }

// ParseKind accepts "lqr" or "pid" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLQR:
		return KindLQR, nil
	case KindPID:
		return KindPID, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownController, s)
}

func New(kind Kind, cfg *config.Config) (dynamo.Controller, error) {
	var (
		ctrl dynamo.Controller
		err  error
	)
	switch kind {
	case KindLQR:
		ctrl, err = NewLQR(cfg)
	case KindPID:
		ctrl, err = NewPID(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownController, string(kind))
	}
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}
