package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "ELEVATE"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	Timezone       string        `mapstructure:"timezone" json:"timezone" yaml:"timezone" validate:"required"`      // default calendar zone for streaks
	SessionTimeout time.Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout"`
	SessionRefresh time.Duration `mapstructure:"session_refresh" json:"session_refresh" yaml:"session_refresh"` // session refresh threshold
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
	Database       struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=mysql postgres sqlite"`   // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                                                // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"password" yaml:"password"`                                    // db password
		Path     string `mapstructure:"path" json:"path" yaml:"path"`                                                // sqlite database file
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema"`                                          // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username"`                                    // db username
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength         int           `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		JWTMethod        string        `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret        string        `mapstructure:"jwt_secret" json:"jwt_secret" yaml:"jwt_secret" validate:"required"`
		TokenName        string        `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"`     // jwt token name set in cookie
		MaxLoginAttempts int           `mapstructure:"max_login_attempts" json:"max_login_attempts" yaml:"max_login_attempts"` // maximum login attempts
		RetryTimeout     time.Duration `mapstructure:"retry_timeout" json:"retry_timeout" yaml:"retry_timeout"`                // retry wait
		BcryptCost       int           `mapstructure:"bcrypt_cost" json:"bcrypt_cost" yaml:"bcrypt_cost" validate:"min=4,max=31"`
		LoginRate        float64       `mapstructure:"login_rate" json:"login_rate" yaml:"login_rate" validate:"gt=0"` // allowed auth requests per second per client
		LoginBurst       int           `mapstructure:"login_burst" json:"login_burst" yaml:"login_burst" validate:"min=1"`
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string        `mapstructure:"host" json:"host" yaml:"host" validate:"required"` // bind host address
		Port     int           `mapstructure:"port" json:"port" yaml:"port"`                     // bind listen port
		Password string        `mapstructure:"password" json:"password" yaml:"password"`
		CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl"` // lifetime of cached public media urls
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Media struct {
		FallbackURL   string   `mapstructure:"fallback_url" json:"fallback_url" yaml:"fallback_url" validate:"required,url"`
		LocalPrefixes []string `mapstructure:"local_prefixes" json:"local_prefixes" yaml:"local_prefixes" validate:"required,min=1"`
		DownloadDir   string   `mapstructure:"download_dir" json:"download_dir" yaml:"download_dir" validate:"required"`
		PublicPath    string   `mapstructure:"public_path" json:"public_path" yaml:"public_path" validate:"required,startswith=/"` // url path downloaded files are served under
	} `mapstructure:"media" json:"media" yaml:"media"`
	Catalog struct {
		BaseURL string        `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"omitempty,url"` // remote catalog, disabled when empty
		APIKey  string        `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
		Bucket  string        `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
		Table   string        `mapstructure:"table" json:"table" yaml:"table" validate:"required"`
		Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	} `mapstructure:"catalog" json:"catalog" yaml:"catalog"`
	DevOP struct {
		APM     bool `mapstructure:"apm" json:"apm" yaml:"apm"`
		Metrics bool `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// RegisterFlags defines every config flag on fs
func RegisterFlags(fs *pflag.FlagSet) {
	// app
	fs.String("host", "", "binding address")
	fs.String("app_id", "elevate360", "application identifier")
	fs.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	fs.Int("port", 8081, "listening port")
	fs.String("timezone", "UTC", "IANA zone used for calendar days when the client sends none")
	fs.Duration("session_timeout", 30*time.Minute, "JWT lifetime(m, s and h units are supported), eg.30m")
	fs.Duration("session_refresh", 5*time.Minute, "session refresh threshold(m, s and h units are supported), eg.5m")
	fs.Duration("request_timeout", 30*time.Second, "abort requests running longer than this")

	// database
	fs.String("database.driver", "sqlite", "database driver to use, one of mysql, postgres, sqlite")
	fs.String("database.host", "127.0.0.1", "database host")
	fs.Int("database.port", 3306, "database server port")
	fs.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	fs.String("database.username", "", "database username (required unless sqlite)")
	fs.String("database.password", "", "database password (required unless sqlite)")
	fs.String("database.schema", "", "database schema (required unless sqlite)")
	fs.String("database.path", "elevate360.db", "sqlite database file")
	fs.String("database.query", "", `additional DSN query parameters('?' is auto prefixed)`)
	fs.Int32("database.maxconn", 200, `max connection count, if you encounter a "too many connections" error, please consider
increasing the max_connection value of your db server, or lower this value`)

	// logging
	fs.String("logging.level", "info", "logging level")
	fs.String("logging.file_path", "", "log to file")

	// security
	fs.Int("security.id_length", 24, "set length of generated ID for entities")
	fs.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	fs.String("security.jwt_secret", "", "JWT secret (required)")
	fs.String("security.token_name", "elevate360_token", "cookie name to store the token")
	fs.Int("security.max_login_attempts", 3, "maximum login attempts")
	fs.Duration("security.retry_timeout", 1*time.Hour, "retry wait")
	fs.Int("security.bcrypt_cost", 10, "bcrypt cost used for password hashing")
	fs.Float64("security.login_rate", 1, "sign-in and sign-up requests allowed per second per client")
	fs.Int("security.login_burst", 5, "sign-in and sign-up burst per client")

	// kv storage
	fs.String("kv.host", "127.0.0.1", "kv host")
	fs.Int("kv.port", 6379, "kv server port")
	fs.String("kv.password", "", "kv server password")
	fs.Duration("kv.cache_ttl", 10*time.Minute, "lifetime of cached media urls")

	// media
	fs.String("media.fallback_url", "https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4", "demo video played when a source cannot be resolved")
	fs.StringSlice("media.local_prefixes", []string{"/local/", "file://"}, "prefixes marking device-local video paths")
	fs.String("media.download_dir", "downloads", "directory downloaded videos are written to")
	fs.String("media.public_path", "/local/videos", "url path downloaded videos are served under")

	// remote catalog
	fs.String("catalog.base_url", "", "remote content backend url, the local store is used alone when empty")
	fs.String("catalog.api_key", "", "remote content backend api key")
	fs.String("catalog.bucket", "videos", "storage bucket holding video objects")
	fs.String("catalog.table", "video_resources", "table listing remote videos")
	fs.Duration("catalog.timeout", 10*time.Second, "remote catalog request timeout")

	// DevOp
	fs.Bool("devop.apm", false, "enable apm metrics")
	fs.Bool("devop.metrics", true, "expose prometheus metrics on /metrics")
}

// LoadConfig binds fs into viper and builds a validated AppConfig
func LoadConfig(fs *pflag.FlagSet) (*AppConfig, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config = new(AppConfig)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

// Location returns the configured default zone
func (ac *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(ac.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "-" || name == "" {
			name = fld.Tag.Get("yaml")
			if name == "-" || name == "" {
				return ""
			}
		}
		return name
	})

	var msg []string
	err := validate.Struct(config)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if err != nil {
		for _, field := range err.(validator.ValidationErrors) {
			namespace := field.Namespace()
			fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
			switch field.Tag() {
			case "required":
				msg = append(msg, fmt.Sprintf("%s is required", fieldName))
			case "oneof":
				msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
			default:
				msg = append(msg, fmt.Sprintf("%s failed on '%s' rule", fieldName, field.Tag()))
			}
		}
	}

	if config.Database.Driver != "sqlite" {
		if config.Database.User == "" {
			msg = append(msg, "database.username is required")
		}
		if config.Database.Schema == "" {
			msg = append(msg, "database.schema is required")
		}
	} else if config.Database.Path == "" {
		msg = append(msg, "database.path is required")
	}
	if _, err := time.LoadLocation(config.Timezone); err != nil {
		msg = append(msg, fmt.Sprintf("timezone is invalid: %s", err))
	}

	if len(msg) > 0 {
		return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
	}
	return nil
}
