package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string `validate:"required"`
		Env          string `validate:"required"`
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string `validate:"required,min=32"`
		RollbarToken string

		Mail        MailConfig
		Database    DatabaseConfig
		Redis       RedisConfig
		Credentials CredentialsConfig
		Catalog     CatalogConfig
		Grading     GradingConfig
		Tasks       TasksConfig
		Backfill    BackfillConfig
		Server      ServerConfig
	}

	MailConfig struct {
		DefaultFromEmail mail.Address
		AlertEmails      []mail.Address
		SendgridApiKey   string
	}

	DatabaseConfig struct {
		Engine        string `validate:"required"`
		Host          string `validate:"required"`
		Port          int    `validate:"gt=0"`
		Name          string `validate:"required"`
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string `validate:"required"`
		Password string
		DB       int `validate:"gte=0"`
	}

	CredentialsConfig struct {
		ServiceUsername             string        `validate:"required"`
		RequestTimeout              time.Duration `validate:"gt=0"`
		TokenExpiration             time.Duration `validate:"gt=0"`
		ProgramCertificatesEnabled  bool
		ProgramsWithoutCertificates []string
	}

	CatalogConfig struct {
		URL      string `validate:"required_without=File"`
		File     string
		CacheTTL time.Duration
	}

	GradingConfig struct {
		URL string `validate:"required"`
	}

	TasksConfig struct {
		MaxAttempts       int           `validate:"gt=0"`
		RateLimitDelay    time.Duration `validate:"gt=0"`
		Concurrency       int           `validate:"gt=0"`
		PollInterval      time.Duration `validate:"gt=0"`
		VisibilityTimeout time.Duration `validate:"gt=0"`
		QueuePrefix       string        `validate:"required"`
	}

	BackfillConfig struct {
		Schedule string
		Window   time.Duration
	}

	ServerConfig struct {
		Host            string
		Address         string
		ShutdownTimeout time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig loads the configuration for the environment named by $ENV (DEV by default).
// Values are read from `<ENV>_<KEY>` environment variables, optionally seeded from config/.env.<env>.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Mail: MailConfig{
			SendgridApiKey: v.GetString("mail.sendgridApiKey"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Credentials: CredentialsConfig{
			ServiceUsername:             v.GetString("credentials.serviceUsername"),
			RequestTimeout:              v.GetDuration("credentials.requestTimeout"),
			TokenExpiration:             v.GetDuration("credentials.tokenExpiration"),
			ProgramCertificatesEnabled:  v.GetBool("credentials.programCertificatesEnabled"),
			ProgramsWithoutCertificates: SplitList(v.GetString("credentials.programsWithoutCertificates")),
		},
		Catalog: CatalogConfig{
			URL:      v.GetString("catalog.url"),
			File:     v.GetString("catalog.file"),
			CacheTTL: v.GetDuration("catalog.cacheTTL"),
		},
		Grading: GradingConfig{
			URL: v.GetString("grading.url"),
		},
		Tasks: TasksConfig{
			MaxAttempts:       v.GetInt("tasks.maxAttempts"),
			RateLimitDelay:    v.GetDuration("tasks.rateLimitDelay"),
			Concurrency:       v.GetInt("tasks.concurrency"),
			PollInterval:      v.GetDuration("tasks.pollInterval"),
			VisibilityTimeout: v.GetDuration("tasks.visibilityTimeout"),
			QueuePrefix:       v.GetString("tasks.queuePrefix"),
		},
		Backfill: BackfillConfig{
			Schedule: v.GetString("backfill.schedule"),
			Window:   v.GetDuration("backfill.window"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("mail.defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing mail.defaultFromEmail")
	}
	conf.Mail.DefaultFromEmail = *from

	if alerts := v.GetString("mail.alertEmails"); alerts != "" {
		addrs, err := mail.ParseAddressList(alerts)
		if err != nil {
			return nil, errors.Wrap(err, "parsing mail.alertEmails")
		}
		for _, a := range addrs {
			conf.Mail.AlertEmails = append(conf.Mail.AlertEmails, *a)
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the loaded values against the `validate` struct tags.
func (conf *Config) Validate() error {
	if err := validator.New().Struct(conf); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo Credentials")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("mail.defaultFromEmail", "Masomo <noreply@localhost>")
	v.SetDefault("mail.alertEmails", "")
	v.SetDefault("mail.sendgridApiKey", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "masomo_credentials")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("credentials.serviceUsername", "credentials_service_user")
	v.SetDefault("credentials.requestTimeout", 15*time.Second)
	v.SetDefault("credentials.tokenExpiration", 5*time.Minute)
	v.SetDefault("credentials.programCertificatesEnabled", true)
	v.SetDefault("credentials.programsWithoutCertificates", "")

	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.cacheTTL", 15*time.Minute)

	v.SetDefault("grading.url", "http://localhost:18000")

	v.SetDefault("tasks.maxAttempts", 11)
	v.SetDefault("tasks.rateLimitDelay", 60*time.Second)
	v.SetDefault("tasks.concurrency", 4)
	v.SetDefault("tasks.pollInterval", time.Second)
	v.SetDefault("tasks.visibilityTimeout", 5*time.Minute)
	v.SetDefault("tasks.queuePrefix", "credentials:tasks")

	v.SetDefault("backfill.schedule", "@every 1h")
	v.SetDefault("backfill.window", 2*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
}
