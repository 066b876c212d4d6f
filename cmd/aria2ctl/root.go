package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pokerjest/aria2deck/internal/config"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/logger"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/spf13/cobra"
)

var (
	flagAddress string
	flagPort    int
	flagToken   string
	flagHTTPS   bool
	flagTimeout time.Duration
	flagSeeding bool
	flagQuery   string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "aria2ctl",
	Short: "Command line client for an aria2 daemon",
	Long: `aria2ctl talks to an aria2 daemon over JSON-RPC.

Connection defaults come from config.yaml and ARIA2DECK_* variables
and can be overridden with flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig("."); err != nil {
			return err
		}
		level := config.AppConfig.Log.Level
		mode := "release"
		if flagDebug {
			level, mode = "debug", "debug"
		}
		logger.Setup(level, mode)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAddress, "address", "", "daemon address (default from config)")
	pf.IntVar(&flagPort, "port", 0, "daemon RPC port (default from config)")
	pf.StringVar(&flagToken, "token", "", "RPC secret (default from config)")
	pf.BoolVar(&flagHTTPS, "https", false, "use https")
	pf.DurationVar(&flagTimeout, "timeout", 0, "request timeout (default from config)")
	pf.BoolVar(&flagDebug, "debug", false, "log every RPC call")

	rootCmd.AddCommand(statusCmd, listCmd, addCmd, addTorrentCmd, addMetalinkCmd,
		pauseCmd, resumeCmd, removeCmd, purgeCmd, optionsCmd)
}

// endpoint merges flags over the loaded configuration.
func endpoint(cmd *cobra.Command) downloader.Endpoint {
	c := config.AppConfig.Aria2
	ep := downloader.Endpoint{Address: c.Address, Port: c.Port, Token: c.Token, HTTPS: c.HTTPS}
	if flagAddress != "" {
		ep.Address = flagAddress
	}
	if flagPort > 0 {
		ep.Port = flagPort
	}
	if cmd.Flags().Changed("token") {
		ep.Token = flagToken
	}
	if cmd.Flags().Changed("https") {
		ep.HTTPS = flagHTTPS
	}
	return ep
}

func newSession(cmd *cobra.Command) *session.Session {
	c := config.AppConfig
	timeout := c.Aria2.Timeout
	if flagTimeout > 0 {
		timeout = flagTimeout
	}
	ep := endpoint(cmd)
	client := downloader.NewAria2Client(ep,
		downloader.WithTimeout(timeout),
		downloader.WithRateLimit(c.Aria2.RateLimit),
		downloader.WithPageSize(c.Aria2.PageSize),
	)
	// 命令行是一次性进程，不需要事件
	return session.New(c.Aria2.Name, ep, session.DefaultOptions(), session.WithHandler(client), session.WithBus(nil))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
