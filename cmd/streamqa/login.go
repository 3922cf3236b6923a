package main

import (
	"context"
	"encoding/json"

	"streamqa/internal/mobile"

	"github.com/spf13/cobra"
)

var (
	loginPlatform string
	loginEmail    string
	loginPassword string
	loginStream   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the mocked mobile login flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if loginPlatform != "" {
			cfg.Mobile.Platform = loginPlatform
		}
		email, password := cfg.Mobile.Username, cfg.Mobile.Password
		if loginEmail != "" {
			email = loginEmail
		}
		if loginPassword != "" {
			password = loginPassword
		}

		zapLogger := newLogger(cfg)
		defer zapLogger.Sync()

		session, err := mobile.NewSessionFromConfig(cfg, zapLogger.Sugar())
		if err != nil {
			return err
		}
		defer session.Close()

		ctx := context.Background()
		session.LaunchApp(ctx)
		if err := mobile.NewWelcomeScreen(session).TapLogin(ctx); err != nil {
			return err
		}
		if err := mobile.NewLoginScreen(session).Login(ctx, email, password); err != nil {
			return err
		}
		if loginStream {
			if err := mobile.NewLiveStreamScreen(session).StartStream(ctx); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			SessionID    string `json:"session_id"`
			StreamStatus string `json:"stream_status"`
			Token        string `json:"token,omitempty"`
			State        any    `json:"state"`
		}{
			SessionID:    session.ID(),
			StreamStatus: session.StreamStatus(),
			Token:        session.AuthToken(),
			State:        session.State(),
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPlatform, "platform", "", "ios or android (overrides mobile.platform)")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Login email (default: mobile.username)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Login password (default: mobile.password)")
	loginCmd.Flags().BoolVar(&loginStream, "start-stream", true, "Start the live stream after login")
}
