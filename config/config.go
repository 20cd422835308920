package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"gamehall/domain/entities"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"gamehall"`

	// HTTP poll surface
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Player accounts
	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"100000"`

	// Duel configuration (amounts in cents, fees in basis points)
	MinStake          int64         `env:"MIN_STAKE" envDefault:"100"`
	MaxStake          int64         `env:"MAX_STAKE" envDefault:"1000000"`
	ProposalTTL       time.Duration `env:"PROPOSAL_TTL" envDefault:"2m"`
	CountdownOffset   time.Duration `env:"COUNTDOWN_OFFSET" envDefault:"3s"`
	ClickPlayDuration time.Duration `env:"CLICK_PLAY_DURATION" envDefault:"10s"`
	DiceFeeBps        int64         `env:"DICE_FEE_BPS" envDefault:"1000"`
	ClickFeeBps       int64         `env:"CLICK_FEE_BPS" envDefault:"500"`
	RPSFeeBps         int64         `env:"RPS_FEE_BPS" envDefault:"500"`

	// Crash configuration
	CrashHouseEdge     float64       `env:"CRASH_HOUSE_EDGE" envDefault:"0.05"`
	CrashHouseFee      float64       `env:"CRASH_HOUSE_FEE" envDefault:"0.05"`
	CrashGrowthRate    float64       `env:"CRASH_GROWTH_RATE" envDefault:"0.00006"`
	CrashBettingWindow time.Duration `env:"CRASH_BETTING_WINDOW" envDefault:"5s"`
	CrashDisplayDelay  time.Duration `env:"CRASH_DISPLAY_DELAY" envDefault:"4s"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// DuelPolicy captures the per-kind rules: fee rate, when stakes are debited,
// whether accepting resolves the game instantly, and how ties are charged.
type DuelPolicy struct {
	HouseFeeBps     int64
	DebitOnPropose  bool
	InstantResolve  bool
	RequiresReady   bool
	MinPlayDuration time.Duration
	SplitTieFee     bool
}

// DuelPolicy returns the policy for the given game kind
func (c *Config) DuelPolicy(kind entities.GameKind) DuelPolicy {
	switch kind {
	case entities.GameKindDice:
		// Both stakes move inside the single instant-resolve accept step
		return DuelPolicy{
			HouseFeeBps:    c.DiceFeeBps,
			InstantResolve: true,
			SplitTieFee:    false,
		}
	case entities.GameKindClick:
		return DuelPolicy{
			HouseFeeBps:     c.ClickFeeBps,
			DebitOnPropose:  true,
			RequiresReady:   true,
			MinPlayDuration: c.ClickPlayDuration,
			SplitTieFee:     true,
		}
	case entities.GameKindRPS:
		return DuelPolicy{
			HouseFeeBps:    c.RPSFeeBps,
			DebitOnPropose: true,
			SplitTieFee:    true,
		}
	}
	return DuelPolicy{}
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// ConstructDatabaseURL appends the database name to a base postgres URL
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}
	return fmt.Sprintf("%s/%s", baseURL, databaseName)
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		cfg, err := load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		instance = cfg
	})
	return instance
}

func load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// NewTestConfig returns a config with deterministic defaults for tests
func NewTestConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost:5432",
		DatabaseName:       "gamehall_test",
		ListenAddr:         ":0",
		StartingBalance:    100000,
		MinStake:           100,
		MaxStake:           1000000,
		ProposalTTL:        2 * time.Minute,
		CountdownOffset:    3 * time.Second,
		ClickPlayDuration:  10 * time.Second,
		DiceFeeBps:         1000,
		ClickFeeBps:        500,
		RPSFeeBps:          500,
		CrashHouseEdge:     0.05,
		CrashHouseFee:      0.05,
		CrashGrowthRate:    0.00006,
		CrashBettingWindow: 5 * time.Second,
		CrashDisplayDelay:  4 * time.Second,
		Environment:        "test",
	}
}

// SetTestConfig replaces the global config, for tests
func SetTestConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// ResetConfig clears the global config so the next Get reloads from env
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}
