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

type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	AppName  string
	Build    string

	SecretKey                 []byte
	JWTExpirationDelta        time.Duration
	JWTRefreshExpirationDelta time.Duration

	Server struct {
		Host    string
		Address string
	}

	// local cache directory; one file per collection
	CacheDir string

	// remote document store
	MongoURI      string
	MongoDatabase string

	// pending remote writes are retried at this interval
	SyncRetryInterval time.Duration

	RollbarToken      string
	SendgridAPIKey    string
	DefaultFromEmail  string
	SupportInboxEmail string
}

// NewConfig loads configuration from defaults, an optional .env.<env> file
// and ENV-prefixed environment variables.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Ngoma")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "h1dd3n-gr00v3(k!ck)ba11-ch4ng3&m3-1n-pr0d")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8080")
	v.SetDefault("cacheDir", filepath.Join(Getwd(), ".cache"))
	v.SetDefault("mongoURI", "mongodb://localhost:27017")
	v.SetDefault("mongoDatabase", "ngoma")
	v.SetDefault("syncRetryInterval", 30*time.Second)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("supportInboxEmail", "support@localhost")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		SecretKey:                 []byte(v.GetString("secretKey")),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		CacheDir:                  v.GetString("cacheDir"),
		MongoURI:                  v.GetString("mongoURI"),
		MongoDatabase:             v.GetString("mongoDatabase"),
		SyncRetryInterval:         v.GetDuration("syncRetryInterval"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridAPIKey:            v.GetString("sendgridAPIKey"),
		DefaultFromEmail:          v.GetString("defaultFromEmail"),
		SupportInboxEmail:         v.GetString("supportInboxEmail"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Address = v.GetString("serverAddress")
	return conf
}
