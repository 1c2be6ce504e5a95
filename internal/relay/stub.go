//go:build !linux

package relay

import "errors"

// RealSwitch is not available on non-Linux platforms.
type RealSwitch struct{}

// NewRealSwitch returns an error on non-Linux platforms.
func NewRealSwitch(chipName string, offset int) (*RealSwitch, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

func (s *RealSwitch) Set(on bool) error {
	return errors.New("relay: not supported")
}

func (s *RealSwitch) Close() error { return nil }
