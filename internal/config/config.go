package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	PostgREST  PostgRESTConfig  `yaml:"postgrest" mapstructure:"postgrest"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin" mapstructure:"linkedin"`
	FinalScout FinalScoutConfig `yaml:"finalscout" mapstructure:"finalscout"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Instantly  InstantlyConfig  `yaml:"instantly" mapstructure:"instantly"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	ChunkSize   int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// PostgRESTConfig holds the hosted store's REST endpoint and service key.
type PostgRESTConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	ServiceKey  string `yaml:"service_key" mapstructure:"service_key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BrowserConfig configures the headless Chrome sessions.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath  string `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// DelayRange is a randomized wait window in milliseconds.
type DelayRange struct {
	MinMs int `yaml:"min_ms" mapstructure:"min_ms"`
	MaxMs int `yaml:"max_ms" mapstructure:"max_ms"`
}

// LinkedInConfig configures the people-search scraper.
type LinkedInConfig struct {
	Email            string     `yaml:"email" mapstructure:"email"`
	Password         string     `yaml:"password" mapstructure:"password"`
	BaseURL          string     `yaml:"base_url" mapstructure:"base_url"`
	Interactive      bool       `yaml:"interactive" mapstructure:"interactive"`
	LoginWaitSecs    int        `yaml:"login_wait_secs" mapstructure:"login_wait_secs"`
	ExtendedWaitSecs int        `yaml:"extended_wait_secs" mapstructure:"extended_wait_secs"`
	PageAttempts     int        `yaml:"page_attempts" mapstructure:"page_attempts"`
	PageBackoffSecs  int        `yaml:"page_backoff_secs" mapstructure:"page_backoff_secs"`
	PageDelay        DelayRange `yaml:"page_delay" mapstructure:"page_delay"`
	RenderDelay      DelayRange `yaml:"render_delay" mapstructure:"render_delay"`
	ScrollDelay      DelayRange `yaml:"scroll_delay" mapstructure:"scroll_delay"`
	FacetsFile       string     `yaml:"facets_file" mapstructure:"facets_file"`
}

// FinalScoutConfig configures the e-mail and contact-detail engine.
type FinalScoutConfig struct {
	Email          string `yaml:"email" mapstructure:"email"`
	Password       string `yaml:"password" mapstructure:"password"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	LookupDelayMs  int    `yaml:"lookup_delay_ms" mapstructure:"lookup_delay_ms"`
	ResultWaitSecs int    `yaml:"result_wait_secs" mapstructure:"result_wait_secs"`
	ModalWaitSecs  int    `yaml:"modal_wait_secs" mapstructure:"modal_wait_secs"`
}

// EnrichConfig configures the enrichment orchestrator.
type EnrichConfig struct {
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	CampaignID   string `yaml:"campaign_id" mapstructure:"campaign_id"`
	UserID       string `yaml:"user_id" mapstructure:"user_id"`
	FetchDetails bool   `yaml:"fetch_details" mapstructure:"fetch_details"`
}

// InstantlyConfig holds outreach platform credentials.
type InstantlyConfig struct {
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	WorkspaceID   string `yaml:"workspace_id" mapstructure:"workspace_id"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	LeadDelayMs   int    `yaml:"lead_delay_ms" mapstructure:"lead_delay_ms"`
	BatchDelayMs  int    `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	DashboardBase string `yaml:"dashboard_base" mapstructure:"dashboard_base"`
}

// ExportConfig configures CSV/XLSX exports.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the job server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the bare environment names used by
// existing deployments. Prefixed names take precedence.
var legacyEnv = map[string][]string{
	"linkedin.email":         {"LINKEDIN_EMAIL"},
	"linkedin.password":      {"LINKEDIN_PASSWORD"},
	"finalscout.email":       {"SCOUT_EMAIL"},
	"finalscout.password":    {"SCOUT_PASSWORD"},
	"instantly.api_key":      {"INSTANTLY_API_KEY"},
	"instantly.workspace_id": {"INSTANTLY_WORKSPACE_ID"},
	"browser.headless":       {"HEADLESS_BROWSER"},
	"browser.exec_path":      {"CHROME_PATH"},
	"enrich.batch_size":      {"ENRICH_BATCH"},
	"enrich.campaign_id":     {"CAMPAIGN_ID"},
	"enrich.user_id":         {"USER_ID"},
	"store.chunk_size":       {"UPSERT_CHUNK_SIZE"},
	"store.database_url":     {"DATABASE_URL"},
	"postgrest.url":          {"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"},
	"postgrest.service_key":  {"SUPABASE_SERVICE_ROLE_KEY"},
}

const envPrefix = "LEADGEN"

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "postgrest")
	v.SetDefault("store.chunk_size", 500)
	v.SetDefault("postgrest.timeout_secs", 60)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36")
	v.SetDefault("linkedin.base_url", "https://www.linkedin.com")
	v.SetDefault("linkedin.interactive", false)
	v.SetDefault("linkedin.login_wait_secs", 30)
	v.SetDefault("linkedin.extended_wait_secs", 15)
	v.SetDefault("linkedin.page_attempts", 3)
	v.SetDefault("linkedin.page_backoff_secs", 5)
	v.SetDefault("linkedin.page_delay.min_ms", 5000)
	v.SetDefault("linkedin.page_delay.max_ms", 10000)
	v.SetDefault("linkedin.render_delay.min_ms", 4000)
	v.SetDefault("linkedin.render_delay.max_ms", 6000)
	v.SetDefault("linkedin.scroll_delay.min_ms", 3000)
	v.SetDefault("linkedin.scroll_delay.max_ms", 5000)
	v.SetDefault("finalscout.base_url", "https://finalscout.com")
	v.SetDefault("finalscout.lookup_delay_ms", 2000)
	v.SetDefault("finalscout.result_wait_secs", 8)
	v.SetDefault("finalscout.modal_wait_secs", 8)
	v.SetDefault("enrich.batch_size", 50)
	v.SetDefault("enrich.fetch_details", true)
	v.SetDefault("instantly.base_url", "https://api.instantly.ai/api/v2")
	v.SetDefault("instantly.batch_size", 10)
	v.SetDefault("instantly.lead_delay_ms", 500)
	v.SetDefault("instantly.batch_delay_ms", 2000)
	v.SetDefault("instantly.dashboard_base", "https://app.instantly.ai/app")
	v.SetDefault("export.dir", ".")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.PostgREST.URL = strings.TrimRight(cfg.PostgREST.URL, "/")

	return &cfg, nil
}

// ValidateStore checks that the selected store driver has what it needs.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case "postgrest":
		if c.PostgREST.URL == "" || c.PostgREST.ServiceKey == "" {
			return eris.New("config: postgrest store requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: postgres store requires store.database_url")
		}
	case "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

// ValidateLinkedIn checks the people-search credentials.
func (c *Config) ValidateLinkedIn() error {
	if c.LinkedIn.Email == "" || c.LinkedIn.Password == "" {
		return eris.New("config: LINKEDIN_EMAIL and LINKEDIN_PASSWORD are required")
	}
	return nil
}

// ValidateFinalScout checks the enrichment tool credentials.
func (c *Config) ValidateFinalScout() error {
	if c.FinalScout.Email == "" || c.FinalScout.Password == "" {
		return eris.New("config: SCOUT_EMAIL and SCOUT_PASSWORD are required")
	}
	return nil
}

// ValidateInstantly checks the outreach credentials.
func (c *Config) ValidateInstantly() error {
	if c.Instantly.APIKey == "" {
		return eris.New("config: INSTANTLY_API_KEY is required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
