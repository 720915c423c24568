package discovery

import "errors"

// Advertiser errors.
var (
	ErrClosed         = errors.New("discovery: advertiser closed")
	ErrAdvertising    = errors.New("discovery: role already advertised")
	ErrNotAdvertising = errors.New("discovery: role not advertised")
	ErrBadPort        = errors.New("discovery: port out of range")
	ErrBadInstance    = errors.New("discovery: bad instance name")
	ErrBadTXT         = errors.New("discovery: malformed TXT attribute")
)

// Resolver errors.
var (
	ErrUnknownService = errors.New("discovery: unknown service type")
	ErrNotFound       = errors.New("discovery: no such service")
	ErrNoAddress      = errors.New("discovery: no dialable address")
	ErrTimeout        = errors.New("discovery: timed out")
)
