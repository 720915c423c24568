package node

import (
	"context"

	"github.com/backkem/triaka/pkg/console"
)

// Service is a role that serves requests until stopped.
type Service interface {
	Start() error
	Stop() error
}

// Run starts svc and blocks until ctx is done or con receives a stop
// command, then stops svc. A nil con waits on ctx only.
func Run(ctx context.Context, svc Service, con *console.Console) error {
	if err := svc.Start(); err != nil {
		return err
	}

	var stop <-chan struct{}
	if con != nil {
		stop = con.Done()
	}
	select {
	case <-ctx.Done():
	case <-stop:
	}
	return svc.Stop()
}
