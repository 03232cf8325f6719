package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/inhibit"
	"github.com/llehouerou/wavesd/internal/lastfm"
	"github.com/llehouerou/wavesd/internal/library"
	"github.com/llehouerou/wavesd/internal/metadata"
	"github.com/llehouerou/wavesd/internal/metered"
	"github.com/llehouerou/wavesd/internal/mpris"
	"github.com/llehouerou/wavesd/internal/notify"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/remote"
	"github.com/llehouerou/wavesd/internal/session"
	"github.com/llehouerou/wavesd/internal/sleeptimer"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/widget"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, cleanup, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// daemon holds everything serve starts, in start order.
type daemon struct {
	log *logrus.Entry

	state     *state.Manager
	library   *library.Library
	notify    *notify.Manager
	widget    *widget.Broadcaster
	surface   *mpris.Surface
	svc       playback.Service
	sleep     *sleeptimer.Timer
	metered   *metered.Coordinator
	scrobbler *lastfm.Scrobbler
	remote    *remote.Server
}

func serve(ctx context.Context, cfg *config.Config) error {
	d := &daemon{log: logrus.WithField("component", "daemon")}
	if err := d.start(ctx, cfg); err != nil {
		d.shutdown()
		return err
	}
	d.log.Info("ready")
	<-ctx.Done()
	d.log.Info("shutting down")
	d.shutdown()
	return nil
}

func (d *daemon) start(ctx context.Context, cfg *config.Config) error {
	var err error
	fs := afero.NewOsFs()

	statePath := cfg.State.DBPath
	if statePath == "" {
		if statePath, err = state.DefaultPath(); err != nil {
			return err
		}
	}
	if d.state, err = state.Open(statePath, d.log); err != nil {
		return fmt.Errorf("open state: %w", err)
	}

	libPath := cfg.Library.DBPath
	if libPath == "" {
		if libPath, err = library.DefaultPath(); err != nil {
			return err
		}
	}
	if d.library, err = library.Open(libPath, d.log); err != nil {
		return fmt.Errorf("open library: %w", err)
	}

	notifier, err := notify.New(appName)
	if err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	ncfg := cfg.GetNotificationConfig()
	d.notify = notify.NewManager(notify.Config{
		MinInterval: ncfg.MinInterval,
		BuildDelay:  ncfg.BuildDelay,
		AppName:     appName,
	}, notifier, d.log)
	d.notify.OpenSettings = func() {
		d.log.WithField("config", configFile()).Info("settings requested, edit the config file and restart")
	}

	wcfg := cfg.GetWidgetConfig()
	d.widget = widget.New(fs, wcfg.Path, wcfg.PositionInterval, d.log)

	inhibitor, err := inhibit.New(appName)
	if err != nil {
		return fmt.Errorf("sleep inhibitor: %w", err)
	}

	sink := remote.NewSink()
	publisher := session.New(session.Options{CoverOnLockScreen: cfg.ShowCoverOnLockScreen()}, sink)

	rewind := cfg.GetAutoRewindConfig()
	opts := playback.Options{
		Engine:        player.NewBeepEngine(),
		Session:       publisher,
		Notifications: d.notify,
		Widget:        d.widget,
		Messenger:     d.notify,
		Library:       d.library,
		Resolver:      metadata.New(fs, metadata.DefaultCacheDir()),
		Store:         d.state,
		Inhibitor:     inhibitor,
		Settings: playback.Settings{
			HeadsetAutoPlay: cfg.HeadsetAutoPlay,
			QueueHalfWindow: cfg.GetQueueConfig().HalfWindow,
			AutoRewind: playback.AutoRewind{
				ShortPause:  *rewind.ShortPause,
				ShortRewind: *rewind.ShortRewind,
				LongPause:   *rewind.LongPause,
				LongRewind:  *rewind.LongRewind,
			},
		},
		Logger: logrus.WithField("component", "playback"),
	}
	d.svc = playback.New(opts)
	d.notify.SetController(d.svc)

	if d.surface, err = mpris.New(appName, d.svc); err != nil {
		d.log.WithError(err).Warn("MPRIS unavailable")
	} else {
		publisher.AddSurface(d.surface)
	}

	if err := d.svc.Initialize(ctx); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	d.sleep = sleeptimer.New(d.svc, cfg.GetSleepTimerConfig().Tick, d.log)
	d.svc.AddCallback(d.sleep)

	d.startMetered(ctx, cfg)
	d.startScrobbler(cfg)

	go func() {
		if err := d.library.Load(ctx); err != nil && ctx.Err() == nil {
			d.log.WithError(err).Error("load library")
			d.notify.ShowMessage(playback.Message{Text: errmsg.Format(errmsg.OpLoadLibrary, "", err)})
		}
	}()

	if cfg.RemoteEnabled() {
		rcfg := cfg.GetRemoteConfig()
		d.remote = remote.New(remote.Options{
			Addr:    rcfg.Addr,
			APIKey:  rcfg.APIKey,
			Service: d.svc,
			Library: d.library,
			Sleep:   d.sleep,
			Sink:    sink,
			Logger:  d.log,
		})
		if err := d.remote.Start(); err != nil {
			d.remote = nil
			return err
		}
	}
	return nil
}

func (d *daemon) startMetered(ctx context.Context, cfg *config.Config) {
	mcfg := cfg.GetMeteredConfig()
	policy, err := metered.ParsePolicy(mcfg.Policy)
	if err != nil {
		d.log.WithError(err).Warn("metered policy")
	}
	d.metered = metered.New(policy, d.svc, d.notify, d.log)
	d.svc.AddCallback(d.metered)
	if policy == metered.PolicyIgnore {
		return
	}

	nm, err := metered.NewNetworkManager()
	if err != nil {
		d.log.WithError(err).Warn("NetworkManager unavailable, metered checks only on playback start")
		return
	}
	go metered.NewMonitor(nm, d.metered, mcfg.PollInterval, d.log).Run(ctx)
}

func (d *daemon) startScrobbler(cfg *config.Config) {
	if !cfg.HasLastfmConfig() {
		return
	}
	sess, err := d.state.GetLastfmSession()
	if err != nil {
		d.log.WithError(err).Warn("load Last.fm session")
		return
	}
	if sess == nil {
		d.log.Info("Last.fm configured but not linked, run \"wavesd lastfm auth\"")
		return
	}
	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	client.SetSessionKey(sess.SessionKey)
	d.scrobbler = lastfm.NewScrobbler(client, d.state, lastfm.DefaultRetryInterval, d.log)
	d.svc.AddCallback(d.scrobbler)
	d.log.WithField("user", sess.Username).Info("scrobbling to Last.fm")
}

// shutdown stops the outer surfaces first, then the playback core so the
// queue is saved, then the stores.
func (d *daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if d.remote != nil {
		if err := d.remote.Shutdown(ctx); err != nil {
			d.log.WithError(err).Warn("stop remote API")
		}
	}
	if d.svc != nil {
		if err := d.svc.Shutdown(ctx); err != nil {
			d.log.WithError(err).Warn("stop playback")
		}
	}
	if d.sleep != nil {
		d.sleep.Close()
	}
	if d.scrobbler != nil {
		d.scrobbler.Close()
	}
	closers := []io.Closer{}
	if d.notify != nil {
		closers = append(closers, d.notify)
	}
	if d.widget != nil {
		closers = append(closers, d.widget)
	}
	if d.surface != nil {
		closers = append(closers, d.surface)
	}
	if d.library != nil {
		closers = append(closers, d.library)
	}
	if d.state != nil {
		closers = append(closers, d.state)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			d.log.WithError(err).Warn("close")
		}
	}
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return "$XDG_CONFIG_HOME/wavesd/config.toml"
}
