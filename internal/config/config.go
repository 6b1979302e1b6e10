package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr    string
		BaseURL string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Session struct {
		Secret     string
		TTL        time.Duration
		CookieName string
		Secure     bool
		// PruneInterval is how often expired sessions are swept; zero disables the sweep.
		PruneInterval time.Duration
	}
	Auth struct {
		BcryptCost int
		OTPTTL     time.Duration
	}
	Mail struct {
		PostmarkToken string
		From          string
	}
	RateLimit struct {
		Requests int
		Window   time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables, optional config files and, when given, command line
// flags. Flags are looked up by their config key, e.g. --server.addr.
func Load(flags *pflag.FlagSet) (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("NESTBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.baseurl", "http://localhost:8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/nestbook.db")
	v.SetDefault("database.url", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 14*24*time.Hour)
	v.SetDefault("session.cookiename", "nestbook_session")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.pruneinterval", time.Hour)
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("auth.otpttl", 20*time.Minute)
	v.SetDefault("mail.postmarktoken", "")
	v.SetDefault("mail.from", "noreply@nestbook.local")
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings required to serve traffic.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("session.secret must be at least 16 characters")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
