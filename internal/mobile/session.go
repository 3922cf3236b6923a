package mobile

import (
	"context"
	"fmt"
	"sync"

	"streamqa/internal/core/domain"
	"streamqa/pkg/config"
	"streamqa/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Platform    string
	Credentials domain.Credentials // the only pair submit accepts
	Tokens      *TokenIssuer       // nil: no token is issued on login
	Logger      *zap.SugaredLogger
}

// Session is an in-memory stand-in for a device driver session. It tracks
// which screen the app shows and moves between welcome, login and
// live_stream in response to taps.
type Session struct {
	id       string
	platform domain.Platform
	valid    domain.Credentials
	tokens   *TokenIssuer
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	state   domain.MobileSessionState
	entered map[domain.Element]string
	token   string
}

func NewSession(opts Options) (*Session, error) {
	platform, err := domain.ParsePlatform(opts.Platform)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	s := &Session{
		id:       uuid.New().String(),
		platform: platform,
		valid:    opts.Credentials,
		tokens:   opts.Tokens,
		logger:   opts.Logger,
	}
	s.logger = s.logger.With("session_id", s.id, "platform", platform)
	s.resetLocked()
	return s, nil
}

// NewSessionFromConfig builds a session with the configured credentials,
// platform and token settings.
func NewSessionFromConfig(cfg *config.Config, log *zap.SugaredLogger) (*Session, error) {
	return NewSession(Options{
		Platform: cfg.Mobile.Platform,
		Credentials: domain.Credentials{
			Email:    cfg.Mobile.Username,
			Password: cfg.Mobile.Password,
		},
		Tokens: NewTokenIssuer(cfg.Mobile.TokenSecret, cfg.Mobile.TokenTTL),
		Logger: log,
	})
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Platform() domain.Platform { return s.platform }

// Locator resolves a logical element for this session's platform.
func (s *Session) Locator(element domain.Element) (string, error) {
	return Resolve(element, s.platform)
}

func (s *Session) LaunchApp(ctx context.Context) {
	_, span := tracing.TraceMobileAction(ctx, "launch_app", s.id, string(s.platform))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.AppLaunched = true
	s.state.CurrentScreen = domain.ScreenWelcome
	s.logger.Infow("app launched")
}

// Tap simulates a tap on a logical element. Elements that have no meaning
// on the current screen are ignored.
func (s *Session) Tap(ctx context.Context, element domain.Element) error {
	ctx, span := tracing.TraceMobileAction(ctx, "tap", s.id, string(s.platform))
	defer span.End()

	id, err := s.Locator(element)
	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AppLaunched {
		return fmt.Errorf("tap %s: %w", element, domain.ErrAppNotLaunched)
	}
	s.logger.Infow("tap", "element", element, "locator", id, "screen", s.state.CurrentScreen)

	switch {
	case s.state.CurrentScreen == domain.ScreenWelcome && element == domain.ElementWelcomeLoginButton:
		err = s.navigateLocked(domain.ScreenLogin)
	case s.state.CurrentScreen == domain.ScreenLogin && element == domain.ElementSubmitLogin:
		err = s.submitLoginLocked()
	case s.state.CurrentScreen == domain.ScreenLiveStream && element == domain.ElementStartStreamButton:
		err = s.setStreamingLocked(true)
	case s.state.CurrentScreen == domain.ScreenLiveStream && element == domain.ElementStopStreamButton:
		err = s.setStreamingLocked(false)
	default:
		s.logger.Warnw("tap ignored", "element", element, "screen", s.state.CurrentScreen)
		return nil
	}

	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return err
}

// EnterText records value against element. Navigation is unaffected.
func (s *Session) EnterText(ctx context.Context, element domain.Element, value string) error {
	_, span := tracing.TraceMobileAction(ctx, "enter_text", s.id, string(s.platform))
	defer span.End()

	if _, err := s.Locator(element); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AppLaunched {
		return fmt.Errorf("enter text into %s: %w", element, domain.ErrAppNotLaunched)
	}
	s.entered[element] = value
	s.logger.Debugw("text entered", "element", element, "screen", s.state.CurrentScreen, "length", len(value))
	return nil
}

// OpenScreen jumps straight to screen, as a deep link would. The same
// guards as tap navigation apply.
func (s *Session) OpenScreen(ctx context.Context, screen domain.Screen) error {
	_, span := tracing.TraceMobileAction(ctx, "open_screen", s.id, string(s.platform))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigateLocked(screen)
}

func (s *Session) navigateLocked(to domain.Screen) error {
	switch to {
	case domain.ScreenWelcome:
	case domain.ScreenLogin:
		if !s.state.AppLaunched {
			return fmt.Errorf("navigate to %s: %w", to, domain.ErrAppNotLaunched)
		}
	case domain.ScreenLiveStream:
		if !s.state.AppLaunched {
			return fmt.Errorf("navigate to %s: %w", to, domain.ErrAppNotLaunched)
		}
		if !s.state.LoggedIn {
			return fmt.Errorf("navigate to %s: %w", to, domain.ErrNotLoggedIn)
		}
	default:
		return fmt.Errorf("unknown screen %q", to)
	}

	s.logger.Debugw("navigated", "from", s.state.CurrentScreen, "to", to)
	s.state.CurrentScreen = to
	return nil
}

func (s *Session) submitLoginLocked() error {
	entered := domain.Credentials{
		Email:    s.entered[domain.ElementEmailInput],
		Password: s.entered[domain.ElementPasswordInput],
	}
	if !entered.Matches(s.valid) {
		s.logger.Warnw("login rejected", "email", entered.Email)
		return domain.ErrInvalidCredentials
	}

	if s.tokens != nil {
		token, err := s.tokens.Issue(entered.Email, s.platform, s.id)
		if err != nil {
			return fmt.Errorf("issue login token: %w", err)
		}
		s.token = token
	}
	s.state.LoggedIn = true
	s.logger.Infow("login succeeded", "email", entered.Email)
	return s.navigateLocked(domain.ScreenLiveStream)
}

func (s *Session) setStreamingLocked(active bool) error {
	if active && !s.state.LoggedIn {
		return fmt.Errorf("start live stream: %w", domain.ErrNotLoggedIn)
	}
	s.state.LiveStreamActive = active
	s.logger.Infow("live stream toggled", "active", active)
	return nil
}

func (s *Session) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LoggedIn
}

func (s *Session) CurrentScreen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentScreen
}

// State returns a copy of the session state.
func (s *Session) State() domain.MobileSessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) StreamStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LiveStreamActive {
		return domain.StreamStatusStreaming
	}
	return domain.StreamStatusOffline
}

// AuthToken returns the token issued by the last successful login, or "".
func (s *Session) AuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Reset returns the session to its freshly created state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.logger.Debugw("session reset")
}

func (s *Session) Close() {
	s.Reset()
}

func (s *Session) resetLocked() {
	s.state = domain.MobileSessionState{
		Platform:      s.platform,
		CurrentScreen: domain.ScreenWelcome,
	}
	s.entered = make(map[domain.Element]string)
	s.token = ""
}
