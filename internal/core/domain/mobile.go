package domain

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

var Platforms = []Platform{PlatformIOS, PlatformAndroid}

// ParsePlatform accepts platform names case-insensitively ("iOS", "Android").
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PlatformIOS, PlatformAndroid:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, raw)
}

type Screen string

const (
	ScreenWelcome    Screen = "welcome"
	ScreenLogin      Screen = "login"
	ScreenLiveStream Screen = "live_stream"
)

// Element is the logical name of a UI element, independent of platform.
type Element string

const (
	ElementWelcomeLoginButton Element = "welcome_login_button"
	ElementEmailInput         Element = "email_input"
	ElementPasswordInput      Element = "password_input"
	ElementSubmitLogin        Element = "submit_login"
	ElementStartStreamButton  Element = "start_stream_button"
	ElementStopStreamButton   Element = "stop_stream_button"
)

// MobileSessionState is a point-in-time copy of a mocked mobile session.
type MobileSessionState struct {
	Platform         Platform `json:"platform"`
	AppLaunched      bool     `json:"app_launched"`
	LoggedIn         bool     `json:"logged_in"`
	CurrentScreen    Screen   `json:"current_screen"`
	LiveStreamActive bool     `json:"live_stream_active"`
}

// Credentials are compared against the configured valid pair and never stored.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Matches(other Credentials) bool {
	return c.Email == other.Email && c.Password == other.Password
}

const (
	StreamStatusStreaming = "streaming"
	StreamStatusOffline   = "offline"
)
