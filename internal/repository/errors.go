package repository

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"cf-ddns/internal/domain"
)

// providerError classifies a failed provider call
func providerError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewError(domain.ErrNetwork, op, err)
	}
	return domain.NewError(domain.ErrProvider, op, err)
}

// envelopeError turns an unsuccessful envelope into an API error
func envelopeError(op string, messages []string) error {
	msg := strings.Join(messages, "; ")
	if msg == "" {
		msg = "provider reported success=false"
	}
	return domain.NewError(domain.ErrAPI, op, errors.New(msg))
}

// unknownZoneError reports a zone id the provider does not know
func unknownZoneError(op string, messages []string) error {
	msg := strings.Join(messages, "; ")
	if msg == "" {
		msg = "zone not found"
	}
	return domain.NewError(domain.ErrProvider, op, fmt.Errorf("unknown zone: %s", msg))
}
