package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
// Parameters: none.
// Returns:
//   - string: DSN for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type WorkerConfig struct {
	Workers    int           `mapstructure:"workers"`
	QueueSize  int           `mapstructure:"queue_size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// AnalysisConfig carries the processing parameters and the investigation
// target. The target client/unit identify the entity under always-on
// monitoring; they are deployment configuration, not constants.
type AnalysisConfig struct {
	FillValue            float64 `mapstructure:"fill_value"`
	RoundDecimals        int     `mapstructure:"round_decimals"`
	DiscrepancyThreshold float64 `mapstructure:"discrepancy_threshold"`
	TargetClient         string  `mapstructure:"target_client"`
	TargetUnit           string  `mapstructure:"target_unit"`
	SampleLimit          int     `mapstructure:"sample_limit"`
}

type SourcesConfig struct {
	Assigned  SourceConfig `mapstructure:"assigned"`
	Estimated SourceConfig `mapstructure:"estimated"`
}

// SourceConfig describes how to read and normalize one raw source: sheet
// location, key columns, status filter, and the descriptive columns carried
// through aggregation.
type SourceConfig struct {
	Sheet     string `mapstructure:"sheet"`
	HeaderRow int    `mapstructure:"header_row"`

	ClientColumn         string `mapstructure:"client_column"`
	ClientFallbackColumn string `mapstructure:"client_fallback_column"`
	UnitColumn           string `mapstructure:"unit_column"`
	ServiceColumn        string `mapstructure:"service_column"`
	HeadcountColumn      string `mapstructure:"headcount_column"`

	StatusColumn  string   `mapstructure:"status_column"`
	StatusEquals  string   `mapstructure:"status_equals"`
	StatusExclude []string `mapstructure:"status_exclude"`

	CleanColumns []string `mapstructure:"clean_columns"`

	// Attributes maps attribute names (company, client_name, unit_name,
	// service_name, group_code, group_name, zone, macrozone, zonal_lead,
	// ops_lead, manager, sector, department) to source column names.
	Attributes map[string]string `mapstructure:"attributes"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("webhook.url", "WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/cuadre.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "cuadre")
	v.SetDefault("storage.region", "")

	v.SetDefault("worker.workers", 2)
	v.SetDefault("worker.queue_size", 64)
	v.SetDefault("worker.job_timeout", 10*time.Minute)

	v.SetDefault("analysis.fill_value", 0)
	v.SetDefault("analysis.round_decimals", 2)
	v.SetDefault("analysis.discrepancy_threshold", 50)
	v.SetDefault("analysis.sample_limit", 10)

	v.SetDefault("webhook.timeout", 10*time.Second)

	setSourceDefaults(v)
}

// setSourceDefaults mirrors the roster layouts the system was built around.
// Deployments with different spreadsheets override these per key.
func setSourceDefaults(v *viper.Viper) {
	v.SetDefault("sources.assigned.sheet", "ASIGNADO")
	v.SetDefault("sources.assigned.header_row", 1)
	v.SetDefault("sources.assigned.client_column", "COD CLIENTE")
	v.SetDefault("sources.assigned.client_fallback_column", "COD GRUPO")
	v.SetDefault("sources.assigned.unit_column", "COD UNID")
	v.SetDefault("sources.assigned.service_column", "COD SERVICIO")
	v.SetDefault("sources.assigned.headcount_column", "")
	v.SetDefault("sources.assigned.status_column", "ESTADO")
	v.SetDefault("sources.assigned.status_exclude", []string{
		"ACTIVO - PARA BAJA 2",
		"ACTIVO - PARA BAJA",
		"ACTIVO - ALTA NUEVA - PARA BAJA",
		"ACTIVO - ALTA NUEVA - PARA BAJA 2",
		"ALTA NUEVA - PARA BAJA",
		"ALTA NUEVA - PARA BAJA 2",
	})
	v.SetDefault("sources.assigned.clean_columns", []string{
		"ESTADO", "COD CLIENTE", "COD UNID", "COD SERVICIO", "COD GRUPO",
		"TIPO DE COMPAÑÍA", "CLIENTE", "UNIDAD", "TIPO DE SERVCIO", "GRUPO",
		"LIDER ZONAL / COORDINADOR", "JEFE DE OPERACIONES", "GERENTE REGIONAL",
		"SECTOR", "DEPARTAMENTO",
	})
	v.SetDefault("sources.assigned.attributes", map[string]string{
		"company":      "TIPO DE COMPAÑÍA",
		"client_name":  "CLIENTE",
		"unit_name":    "UNIDAD",
		"service_name": "TIPO DE SERVCIO",
		"group_code":   "COD GRUPO",
		"group_name":   "GRUPO",
		"zonal_lead":   "LIDER ZONAL / COORDINADOR",
		"ops_lead":     "JEFE DE OPERACIONES",
		"manager":      "GERENTE REGIONAL",
		"sector":       "SECTOR",
		"department":   "DEPARTAMENTO",
	})

	v.SetDefault("sources.estimated.sheet", "DATA")
	v.SetDefault("sources.estimated.header_row", 2)
	v.SetDefault("sources.estimated.client_column", "Cliente")
	v.SetDefault("sources.estimated.client_fallback_column", "Grupo")
	v.SetDefault("sources.estimated.unit_column", "Unidad")
	v.SetDefault("sources.estimated.service_column", "Servicio")
	v.SetDefault("sources.estimated.headcount_column", "Q° PER. FACTOR - REQUERIDO")
	v.SetDefault("sources.estimated.status_column", "Estado")
	v.SetDefault("sources.estimated.status_equals", "Aprobado")
	v.SetDefault("sources.estimated.clean_columns", []string{
		"Cliente", "Unidad", "Servicio", "Nombre Servicio", "Grupo",
		"Compañía", "Nombre Cliente", "Nombre Unidad", "ZONA", "MACROZONA",
		"Nombre Grupo", "LÍDER ZONAL", "JEFE", "GERENTE", "SECTOR",
		"Descripcion Departamento",
	})
	v.SetDefault("sources.estimated.attributes", map[string]string{
		"company":      "TIPO DE PLANILLA",
		"client_name":  "Nombre Cliente",
		"unit_name":    "Nombre Unidad",
		"service_name": "Nombre Servicio",
		"group_code":   "Grupo",
		"group_name":   "Nombre Grupo",
		"zone":         "ZONA",
		"macrozone":    "MACROZONA",
		"zonal_lead":   "LÍDER ZONAL",
		"ops_lead":     "JEFE",
		"manager":      "GERENTE",
		"sector":       "SECTOR",
	})
}
