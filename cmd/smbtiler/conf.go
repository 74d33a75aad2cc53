package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smbtiler/internal/mbtiles"
	"smbtiler/internal/pyramid"
	"smbtiler/internal/smbshare"
)

// Conf 运行配置
type Conf struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Domain   string        `mapstructure:"domain"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Share    string        `mapstructure:"share"`
	Base     string        `mapstructure:"base"`
	Timeout  time.Duration `mapstructure:"timeout"`

	Output      string `mapstructure:"output"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Format      string `mapstructure:"format"`

	ZoomOrder    string `mapstructure:"zoom-order"`
	InsertMode   string `mapstructure:"insert-mode"`
	QueueSize    int    `mapstructure:"queue-size"`
	ListingCache int    `mapstructure:"listing-cache"`

	LogLevel    string `mapstructure:"log-level"`
	LogDir      string `mapstructure:"log-dir"`
	Progress    bool   `mapstructure:"progress"`
	MetricsAddr string `mapstructure:"metrics-addr"`

	passwordSet bool
	zoomOrder   pyramid.ZoomOrder
}

const (
	insertSync  = "sync"
	insertAsync = "async"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 445)
	v.SetDefault("domain", "")
	v.SetDefault("timeout", smbshare.DefaultTimeout)
	v.SetDefault("output", "output.mbtiles")
	v.SetDefault("name", "xyz-to-mbtiles")
	v.SetDefault("format", mbtiles.PNG)
	v.SetDefault("zoom-order", "numeric")
	v.SetDefault("insert-mode", insertSync)
	v.SetDefault("queue-size", 4)
	v.SetDefault("listing-cache", 1024)
	v.SetDefault("log-level", "info")
	v.SetDefault("progress", true)
}

// InitConf 初始化配置: defaults, then the optional config file, then
// SMBTILER_* environment variables, then flags.
func InitConf(v *viper.Viper, cfgFile string) (*Conf, error) {
	setDefaults(v)
	v.SetEnvPrefix("smbtiler")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file(%s): %w", cfgFile, err)
		}
	}

	var c Conf
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.passwordSet = v.IsSet("password")
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects a configuration missing a required option or holding an
// unknown choice, and keeps the parsed zoom order.
func (c *Conf) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("missing samba host")
	case c.Username == "":
		return errors.New("missing samba username")
	case c.Password == "" && !c.passwordSet:
		return errors.New("missing samba password")
	case c.Share == "":
		return errors.New("missing samba share")
	case c.Base == "":
		return errors.New("missing samba base")
	case c.Output == "":
		return errors.New("missing output file")
	}
	order, err := pyramid.ParseZoomOrder(c.ZoomOrder)
	if err != nil {
		return err
	}
	c.zoomOrder = order
	if !mbtiles.ValidFormat(c.Format) {
		return fmt.Errorf("unknown tile format %q", c.Format)
	}
	switch c.InsertMode {
	case insertSync, insertAsync:
	default:
		return fmt.Errorf("unknown insert mode %q", c.InsertMode)
	}
	return nil
}

func (c *Conf) smbConfig() smbshare.Config {
	return smbshare.Config{
		Host:     c.Host,
		Port:     c.Port,
		Domain:   c.Domain,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout,
	}
}
