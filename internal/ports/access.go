package ports

import "context"

// AccessStatus is the host's answer to a background execution request.
type AccessStatus int

const (
	AccessUnspecified AccessStatus = iota
	AccessAllowed
	AccessDenied
)

// AccessProvider asks the host for permission to run in the background.
type AccessProvider interface {
	RequestAccess(ctx context.Context) (AccessStatus, error)
}

// AlwaysAllow grants every request.
type AlwaysAllow struct{}

func (AlwaysAllow) RequestAccess(context.Context) (AccessStatus, error) { return AccessAllowed, nil }
