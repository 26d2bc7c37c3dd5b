package capability

import (
	"testing"

	"auravox/internal/domain"
)

func TestStaticConstructors(t *testing.T) {
	t.Parallel()

	if caps := Available().Detect(); !caps.NativeEngineAvailable || !caps.MicrophoneAvailable || caps.Restrictive {
		t.Fatalf("unexpected available caps: %+v", caps)
	}
	if caps := Unavailable().Detect(); caps != (domain.Capabilities{}) {
		t.Fatalf("unexpected unavailable caps: %+v", caps)
	}
	custom := domain.Capabilities{Restrictive: true}
	if NewStatic(custom).Detect() != custom {
		t.Fatalf("static must echo its capabilities")
	}
}

func TestProbeDetect(t *testing.T) {
	t.Parallel()

	yes := func() bool { return true }
	no := func() bool { return false }

	cases := []struct {
		name  string
		probe Probe
		want  domain.Capabilities
	}{
		{
			name:  "everything present",
			probe: Probe{NativeConfigured: yes, MicrophoneFound: yes, UploadURL: "https://chat.example.com"},
			want:  domain.Capabilities{NativeEngineAvailable: true, MicrophoneAvailable: true, SecureContext: true},
		},
		{
			name:  "native without microphone",
			probe: Probe{NativeConfigured: yes, MicrophoneFound: no, UploadURL: "http://10.0.0.5:8080"},
			want:  domain.Capabilities{},
		},
		{
			name:  "restricted loopback",
			probe: Probe{NativeConfigured: no, MicrophoneFound: yes, UploadURL: "http://127.0.0.1:8080", Restricted: true},
			want:  domain.Capabilities{MicrophoneAvailable: true, SecureContext: true, Restrictive: true},
		},
		{
			name:  "nil probes",
			probe: Probe{},
			want:  domain.Capabilities{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.probe.Detect(); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestIsSecureEndpoint(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com":      true,
		"http://localhost:3000":    true,
		"http://[::1]:3000":        true,
		"http://example.com":       false,
		"":                         false,
		"not a url":                false,
		"ws://127.0.0.1/api/x":     true,
		"HTTPS://EXAMPLE.COM/path": true,
	}
	for raw, want := range cases {
		if got := IsSecureEndpoint(raw); got != want {
			t.Fatalf("IsSecureEndpoint(%q) = %v, want %v", raw, got, want)
		}
	}
}
