package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/backkem/triaka/pkg/crypto"
	"github.com/backkem/triaka/pkg/discovery"
	"github.com/backkem/triaka/pkg/message"
	"github.com/backkem/triaka/pkg/transport"
	"github.com/pion/logging"
)

// statusReply maps err to the literal returned to the sender. Errors
// without a literal close the connection unanswered.
func statusReply(log logging.LeveledLogger, peer string, err error) []byte {
	status, ok := aka.StatusFor(err)
	if !ok {
		if log != nil {
			log.Errorf("request from %s failed: %v", peer, err)
		}
		return nil
	}
	if log != nil {
		log.Infof("rejecting %s with %s: %v", peer, status, err)
	}
	return status.Encode()
}

// upstreamStatus maps a failed exchange with the Server to the literal the
// Gateway reports to its Client.
func upstreamStatus(err error) message.Status {
	if errors.Is(err, transport.ErrReadFailed) {
		return message.StatusUnableToReadServer
	}
	return message.StatusUnableToContactServer
}

// resolveUpstream returns addr, or discovers a peer of serviceType when
// addr is empty.
func resolveUpstream(ctx context.Context, addr string, resolver *discovery.Resolver, serviceType discovery.ServiceType, instance string) (string, error) {
	if addr != "" {
		return addr, nil
	}
	if resolver == nil {
		return "", ErrNoUpstream
	}
	resolved, err := resolver.Resolve(ctx, serviceType, instance)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoUpstream, err)
	}
	return resolved, nil
}

// register runs the initiator side of registration against addr.
func register(ctx context.Context, dialer *transport.Dialer, addr, id string, nonces crypto.NonceSource) (*aka.Credentials, error) {
	initiator, err := aka.NewInitiator([]byte(id), nonces)
	if err != nil {
		return nil, err
	}
	req, err := initiator.Start()
	if err != nil {
		return nil, err
	}

	raw, err := dialer.Exchange(ctx, addr, req.Encode())
	if err != nil {
		return nil, err
	}
	if !message.IsTagged(raw) {
		return nil, message.ParseStatus(raw)
	}
	reply, err := message.DecodeRegisterReply(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return initiator.Finish(reply)
}
