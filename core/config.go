package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Build is set at compile time via -ldflags.
var Build = "dev"

type Config struct {
	AppName   string
	Env       string // DEV (default), TEST, QA, PROD
	Debug     bool
	TestMode  bool
	Build     string
	SecretKey string

	// Content Synchronizer bootstrap values (opaque, environment-provided).
	AppID            string
	InitialAuthToken string

	// Profile Store; empty DSN selects the in-memory store.
	ProfileStoreDSN string

	RollbarToken string

	Server struct {
		Addr                      string
		Host                      string
		DebugAddr                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shiksha")
	v.SetDefault("secretKey", "w3p#yq(8gz&$f-ku2m@57s!vd4)x0tr6hj9cb1n_eoa+l5i#m8")
	v.SetDefault("appID", "default-app-id")
	v.SetDefault("initialAuthToken", "")
	v.SetDefault("profileStoreDSN", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("debugAddr", ":8001")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
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

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Build:            Build,
		SecretKey:        v.GetString("secretKey"),
		AppID:            v.GetString("appID"),
		InitialAuthToken: v.GetString("initialAuthToken"),
		ProfileStoreDSN:  v.GetString("profileStoreDSN"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.DebugAddr = v.GetString("debugAddr")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	return conf
}
