package config

import (
	"fmt"
	"github.com/mousybusiness/nowplaying/pkg/authn"
	"github.com/mousybusiness/nowplaying/pkg/creds"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"strings"
)

// Version information - set by the release build
var (
	version = "dev"
	commit  = "none"
)

func GetVersionInfo() string {
	return fmt.Sprintf("nowplaying version %s, commit %s", version, commit)
}

const envPrefix = "NOWPLAYING"

type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreRedis  StoreBackend = "redis"
	StoreMemory StoreBackend = "memory"
)

type Config struct {
	Spotify SpotifyConfig `mapstructure:"spotify"`
	Genius  GeniusConfig  `mapstructure:"genius"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type SpotifyConfig struct {
	ClientID       string `mapstructure:"client_id"`
	RedirectURI    string `mapstructure:"redirect_uri"`
	DevRedirectURI string `mapstructure:"dev_redirect_uri"`
	Scopes         string `mapstructure:"scopes"` // space separated
	AuthorizeURL   string `mapstructure:"authorize_url"`
	TokenURL       string `mapstructure:"token_url"`
	APIURL         string `mapstructure:"api_url"`
	AppURL         string `mapstructure:"app_url"` // where the client believes it lives
	OpenBrowser    bool   `mapstructure:"open_browser"`
}

type GeniusConfig struct {
	AccessToken string `mapstructure:"access_token"`
	APIURL      string `mapstructure:"api_url"`
}

type StoreConfig struct {
	Backend StoreBackend `mapstructure:"backend"`
	Path    string       `mapstructure:"path"`
	Redis   RedisConfig  `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScopeList splits the configured scopes on whitespace.
func (s SpotifyConfig) ScopeList() []string {
	return strings.Fields(s.Scopes)
}

func setDefaults(v *viper.Viper) {
	// every key needs a default so AutomaticEnv can fill it during Unmarshal
	v.SetDefault("spotify.client_id", "")
	v.SetDefault("spotify.redirect_uri", "")
	v.SetDefault("spotify.dev_redirect_uri", authn.DefaultDevRedirectURL)
	v.SetDefault("spotify.scopes", "user-read-currently-playing user-read-playback-state")
	v.SetDefault("spotify.authorize_url", authn.DefaultAuthorizeURL)
	v.SetDefault("spotify.token_url", authn.DefaultTokenURL)
	v.SetDefault("spotify.api_url", "https://api.spotify.com")
	v.SetDefault("spotify.app_url", "http://localhost:5173/")
	v.SetDefault("spotify.open_browser", true)

	v.SetDefault("genius.access_token", "")
	v.SetDefault("genius.api_url", "https://api.genius.com")

	v.SetDefault("store.backend", string(StoreFile))
	v.SetDefault("store.path", creds.DefaultPath())
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "nowplaying")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// InitFlags registers the flags Load understands (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.String("store", "", "Credential store backend (file|redis|memory)")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
}

// Load reads config.yaml (if any), NOWPLAYING_* environment variables and
// flags, in increasing priority. Missing Spotify settings are not an error
// here; login reports them when it needs them.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	file := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			file = f.Value.String()
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/nowplaying")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if fs != nil {
		if f := fs.Lookup("store"); f != nil && f.Changed {
			config.Store.Backend = StoreBackend(f.Value.String())
		}
		if f := fs.Lookup("log-level"); f != nil && f.Changed {
			config.Logging.Level = f.Value.String()
		}
	}

	switch config.Store.Backend {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return nil, errors.Errorf("unknown store backend %q, expected file, redis or memory", config.Store.Backend)
	}

	return &config, nil
}
