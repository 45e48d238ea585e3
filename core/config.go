package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	APIModeLocal  = "local"
	APIModeRemote = "remote"
)

type (
	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		Database         DatabaseConfig
		Server           ServerConfig
		API              APIConfig
	}

	DatabaseConfig struct {
		Path          string
		OpenTimeout   time.Duration
		AdminEmail    string
		AdminUsername string
		AdminPassword string
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	// APIConfig selects which executor serves requests: the embedded store or a remote backend.
	APIConfig struct {
		Mode    string
		BaseURL string
		Timeout time.Duration
	}
)

func (c APIConfig) IsRemote() bool { return c.Mode == APIModeRemote }

// NewConfig loads the configuration from defaults, an optional .env.<env> file and the environment.
// ENV selects the environment (DEV by default) and doubles as the env vars prefix, e.g. DEV_SECRETKEY.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Examiner")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "q8d%3n-l0zw)xk^v#7r2!tb=e_m4yh+c1o(a6uj9s*pgf$kw5")
	v.SetDefault("defaultFromName", "Examiner")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("dbPath", filepath.Join(os.TempDir(), "examiner.db"))
	v.SetDefault("dbOpenTimeout", 5*time.Second)
	v.SetDefault("adminEmail", "admin@example.com")
	v.SetDefault("adminUsername", "admin")
	v.SetDefault("adminPassword", "adminpassword")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	v.SetDefault("apiMode", APIModeLocal)
	v.SetDefault("apiBaseURL", "http://localhost:8000/api")
	v.SetDefault("apiTimeout", 30*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:   v.GetString("appName"),
		Env:       env,
		Build:     v.GetString("build"),
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		SecretKey: v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		FrontendBaseURL: strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Path:          v.GetString("dbPath"),
			OpenTimeout:   v.GetDuration("dbOpenTimeout"),
			AdminEmail:    CleanString(v.GetString("adminEmail"), true /* lower */),
			AdminUsername: CleanString(v.GetString("adminUsername"), true /* lower */),
			AdminPassword: v.GetString("adminPassword"),
		},
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Address:            v.GetString("serverAddress"),
			DebugHost:          v.GetString("serverDebugHost"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("shutdownTimeout"),
		},
		API: APIConfig{
			Mode:    strings.ToLower(v.GetString("apiMode")),
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("apiTimeout"),
		},
	}
}
