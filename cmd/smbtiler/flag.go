package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smbtiler/internal/smbshare"
)

const version = "v0.1.0"

// newRootCmd builds the command line. run is called with a validated
// configuration once flags, environment and config file are merged.
func newRootCmd(run func(context.Context, *Conf) error) *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:   "smbtiler",
		Short: "Pack an XYZ tile pyramid from an SMB share into an mbtiles file",
		Long: `smbtiler walks zoom/column/row tiles below a directory of an SMB share
and stores them in a single mbtiles archive.

Running again against an existing archive skips the columns it already holds.
Every option can also be set as SMBTILER_<OPTION> or in a TOML config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := InitConf(v, configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), conf)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "set config `file` (toml)")
	f.String("host", "", "Samba host")
	f.Int("port", 445, "Samba port")
	f.String("domain", "", "Samba domain")
	f.String("username", "", "Samba username")
	f.String("password", "", "Samba password")
	f.String("share", "", "Samba share folder")
	f.String("base", "", "Samba base")
	f.Duration("timeout", smbshare.DefaultTimeout, "request timeout")
	f.StringP("output", "o", "output.mbtiles", "Output file")
	f.String("name", "xyz-to-mbtiles", "mbtiles name")
	f.String("description", "", "mbtiles description")
	f.String("format", "png", "mbtiles tile format")
	f.String("zoom-order", "numeric", "zoom level order: numeric or lexical")
	f.String("insert-mode", insertSync, "column insert: sync or async")
	f.Int("queue-size", 4, "batches waiting in async insert mode")
	f.Int("listing-cache", 1024, "directory listings kept in memory, 0 to disable")
	f.StringP("log-level", "l", "info", "set log level")
	f.String("log-dir", "", "also write logs to a daily file in this directory")
	f.Bool("progress", true, "show a progress bar per zoom level")
	f.String("metrics-addr", "", "serve prometheus metrics on this address")

	// flags without a value on the command line fall back to env/config
	_ = v.BindPFlags(f)
	return cmd
}
