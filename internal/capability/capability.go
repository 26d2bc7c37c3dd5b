package capability

import (
	"net"
	"net/url"
	"strings"

	"auravox/internal/domain"
)

// Static reports a fixed set of capabilities.
type Static struct {
	caps domain.Capabilities
}

func NewStatic(caps domain.Capabilities) Static {
	return Static{caps: caps}
}

// Available reports every entry point as present.
func Available() Static {
	return Static{caps: domain.Capabilities{
		NativeEngineAvailable: true,
		MicrophoneAvailable:   true,
		SecureContext:         true,
	}}
}

// Unavailable reports nothing, which leaves manual entry as the only option.
func Unavailable() Static {
	return Static{}
}

func (s Static) Detect() domain.Capabilities {
	return s.caps
}

// Probe inspects the local runtime.
type Probe struct {
	NativeConfigured func() bool
	MicrophoneFound  func() bool
	UploadURL        string
	Restricted       bool
}

func (p Probe) Detect() domain.Capabilities {
	caps := domain.Capabilities{
		SecureContext: IsSecureEndpoint(p.UploadURL),
		Restrictive:   p.Restricted,
	}
	if p.MicrophoneFound != nil {
		caps.MicrophoneAvailable = p.MicrophoneFound()
	}
	// Streaming needs a microphone too.
	if p.NativeConfigured != nil && caps.MicrophoneAvailable {
		caps.NativeEngineAvailable = p.NativeConfigured()
	}
	return caps
}

// IsSecureEndpoint reports whether raw is https or points at a loopback host.
func IsSecureEndpoint(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return false
	}
	if strings.EqualFold(parsed.Scheme, "https") {
		return true
	}
	host := parsed.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
