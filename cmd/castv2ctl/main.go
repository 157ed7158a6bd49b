// Command castv2ctl is a small operator CLI exercising connect, launch, and
// load against a single Cast receiver given by its address, grounded on the
// cobra-based command tree the retrieved corpus's docker-compose CLI uses.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-castv2/castv2/device"
	"github.com/go-castv2/castv2/media"
	"github.com/go-castv2/castv2/xviper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "castv2ctl",
		Short: "Drive a single Cast V2 receiver: connect, launch, and load media",
	}
	root.PersistentFlags().String("config", "", "path to a castv2ctl config file")
	root.PersistentFlags().String("config-name", "castv2ctl", "base name of the config file to search for, when --config is not set")

	root.AddCommand(newLaunchCmd())
	return root
}

// loadConfig binds the --config/--config-name flags the same way the
// teacher's xviper.BindConfig helper is meant to be used: an explicit file
// path wins over a search-by-name, which in turn falls back to the standard
// *nix configuration paths.
func loadConfig(flags *pflag.FlagSet) (xviper.CastConfig, error) {
	v := viper.New()
	xviper.AddStandardConfigPaths(v, "castv2ctl")
	if !xviper.BindConfig(v, flags, "config", "config-name") {
		v.SetConfigName("castv2ctl")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return xviper.CastConfig{}, err
		}
	}

	return xviper.NewCastConfig(v)
}

func newLaunchCmd() *cobra.Command {
	var (
		address     string
		appID       string
		contentID   string
		dialTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Connect to a receiver, launch an application, and optionally load content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			opts := device.Options{
				Channel: cfg.ChannelOptions(),
				Session: cfg.SessionOptions(),
			}

			ctrl := device.New(device.Identity{ID: address, Address: address}, opts)

			ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()

			if err := ctrl.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer ctrl.Close()

			mediaCtrl, err := ctrl.LaunchApplication(ctx, appID)
			if err != nil {
				return fmt.Errorf("launch %s: %w", appID, err)
			}

			if mediaCtrl == nil || contentID == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "launched %s\n", appID)
				return nil
			}

			status, err := mediaCtrl.Load(ctx, media.MediaInfo{ContentID: contentID}, true, nil)
			if err != nil {
				return fmt.Errorf("load %s: %w", contentID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s, media session %d, state %s\n", contentID, status.MediaSessionID, status.PlayerState)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "receiver address, host:port")
	cmd.Flags().StringVar(&appID, "app-id", media.DefaultMediaReceiverAppID, "application id to launch")
	cmd.Flags().StringVar(&contentID, "content-id", "", "content URL to load once the application is running")
	cmd.Flags().DurationVar(&dialTimeout, "timeout", 10*time.Second, "overall timeout for connect and launch")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}
