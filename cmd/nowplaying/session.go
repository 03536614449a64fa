package main

import (
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"time"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Spotify in the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.login(cmd.Context()); err != nil {
			return errors.Wrap(err, "login failed")
		}
		log.Info("logged in")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget all stored Spotify credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.flow.Logout(cmd.Context()); err != nil {
			return err
		}
		log.Info("logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the login state and token expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		state, err := a.flow.State(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "state: %v\n", state)

		c, err := a.store.Credentials(ctx)
		if err != nil {
			return err
		}
		if c.AccessToken == "" {
			return nil
		}

		soon, err := a.flow.IsAccessTokenExpiringSoon(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "access token expires: %v (in %v)\n",
			c.Expiry.Format(time.RFC3339), time.Until(c.Expiry).Round(time.Second))
		fmt.Fprintf(out, "expiring soon: %v\n", soon)
		fmt.Fprintf(out, "refresh token: %v\n", c.RefreshToken != "")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.flow.Refresh(cmd.Context()); err != nil {
			return err
		}

		expiresAt, err := a.store.ExpiresAt(cmd.Context())
		if err != nil {
			return err
		}
		log.WithField("expires", time.UnixMilli(expiresAt).Format(time.RFC3339)).Info("access token refreshed")
		return nil
	},
}
