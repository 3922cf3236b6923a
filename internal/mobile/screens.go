package mobile

import (
	"context"

	"streamqa/internal/core/domain"
)

type WelcomeScreen struct {
	session *Session
}

func NewWelcomeScreen(s *Session) *WelcomeScreen {
	return &WelcomeScreen{session: s}
}

func (w *WelcomeScreen) IsVisible() bool {
	st := w.session.State()
	return st.AppLaunched && st.CurrentScreen == domain.ScreenWelcome
}

func (w *WelcomeScreen) TapLogin(ctx context.Context) error {
	return w.session.Tap(ctx, domain.ElementWelcomeLoginButton)
}

type LoginScreen struct {
	session *Session
}

func NewLoginScreen(s *Session) *LoginScreen {
	return &LoginScreen{session: s}
}

func (l *LoginScreen) IsVisible() bool {
	return l.session.CurrentScreen() == domain.ScreenLogin
}

// Login fills both inputs and submits.
func (l *LoginScreen) Login(ctx context.Context, email, password string) error {
	if err := l.session.EnterText(ctx, domain.ElementEmailInput, email); err != nil {
		return err
	}
	if err := l.session.EnterText(ctx, domain.ElementPasswordInput, password); err != nil {
		return err
	}
	return l.session.Tap(ctx, domain.ElementSubmitLogin)
}

type LiveStreamScreen struct {
	session *Session
}

func NewLiveStreamScreen(s *Session) *LiveStreamScreen {
	return &LiveStreamScreen{session: s}
}

func (l *LiveStreamScreen) IsLoaded() bool {
	return l.session.CurrentScreen() == domain.ScreenLiveStream
}

func (l *LiveStreamScreen) StartStream(ctx context.Context) error {
	return l.session.Tap(ctx, domain.ElementStartStreamButton)
}

func (l *LiveStreamScreen) StopStream(ctx context.Context) error {
	return l.session.Tap(ctx, domain.ElementStopStreamButton)
}

func (l *LiveStreamScreen) StreamStatus() string {
	return l.session.StreamStatus()
}
