package main

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/lastfm"
	"github.com/llehouerou/wavesd/internal/state"
)

const authTimeout = 5 * time.Minute

func init() {
	lastfmAuthCmd.Flags().Bool("manual", false, "Use the desktop flow instead of the local callback server")
	lastfmCmd.AddCommand(lastfmAuthCmd, lastfmLogoutCmd, lastfmStatusCmd)
	rootCmd.AddCommand(lastfmCmd)
}

var lastfmCmd = &cobra.Command{
	Use:   "lastfm",
	Short: "Link or unlink a Last.fm account for scrobbling",
}

var lastfmAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize wavesd to scrobble to your Last.fm account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, st, cleanup, err := openLastfmState(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		if !cfg.HasLastfmConfig() {
			return errors.New("lastfm.api_key and lastfm.api_secret must be set in the config file")
		}

		client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		var token string
		if manual, _ := cmd.Flags().GetBool("manual"); manual {
			token, err = manualToken(cmd, client)
		} else {
			token, err = callbackToken(cmd, client)
		}
		if err != nil {
			return err
		}

		username, sessionKey, err := client.GetSession(token)
		if err != nil {
			return errors.New(errmsg.Format(errmsg.OpLinkLastfm, "", err))
		}
		if err := st.SaveLastfmSession(username, sessionKey); err != nil {
			return err
		}
		cmd.Printf("linked Last.fm account %s\n", username)
		return nil
	},
}

func callbackToken(cmd *cobra.Command, client *lastfm.Client) (string, error) {
	srv, err := lastfm.StartAuthServer()
	if err != nil {
		return "", err
	}
	defer srv.Shutdown()

	authURL := client.GetCallbackAuthURL(lastfm.CallbackURL())
	cmd.Printf("Open this URL to authorize wavesd:\n  %s\n", authURL)
	_ = lastfm.OpenBrowser(authURL)

	token, err := srv.WaitForToken(cmd.Context(), authTimeout)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("no authorization received within %s", authTimeout)
	}
	return token, nil
}

func manualToken(cmd *cobra.Command, client *lastfm.Client) (string, error) {
	token, err := client.GetToken()
	if err != nil {
		return "", err
	}
	authURL := client.GetAuthURL(token)
	cmd.Printf("Open this URL, authorize wavesd, then press Enter:\n  %s\n", authURL)
	_ = lastfm.OpenBrowser(authURL)
	if _, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n'); err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	return token, nil
}

var lastfmLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the linked Last.fm account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, st, cleanup, err := openLastfmState(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := st.DeleteLastfmSession(); err != nil {
			return err
		}
		cmd.Println("Last.fm account unlinked")
		return nil
	},
}

var lastfmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the linked account and pending scrobbles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, st, cleanup, err := openLastfmState(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		sess, err := st.GetLastfmSession()
		if err != nil {
			return err
		}
		if sess == nil {
			cmd.Println("not linked")
			return nil
		}
		pending, err := st.GetPendingScrobbles()
		if err != nil {
			return err
		}
		cmd.Printf("linked as %s %s, %d pending scrobbles\n",
			sess.Username, humanize.Time(sess.LinkedAt), len(pending))
		return nil
	},
}

func openLastfmState(cmd *cobra.Command) (*config.Config, *state.Manager, func(), error) {
	cfg, cleanupLog, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	path := cfg.State.DBPath
	if path == "" {
		if path, err = state.DefaultPath(); err != nil {
			cleanupLog()
			return nil, nil, nil, err
		}
	}
	st, err := state.Open(path, nil)
	if err != nil {
		cleanupLog()
		return nil, nil, nil, err
	}
	cleanup := func() {
		_ = st.Close()
		cleanupLog()
	}
	return cfg, st, cleanup, nil
}
