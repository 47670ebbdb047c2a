package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Режимы хранилища в порядке приоритета.
const (
	ModeDatabase = "database"
	ModeSQLite   = "sqlite"
	ModeFile     = "file"
	ModeMemory   = "in-memory"
)

// Config хранит конфигурацию сервера
type Config struct {
	ServerAddress   string `json:"server_address"`
	BaseURL         string `json:"base_url"`
	FileStoragePath string `json:"file_storage_path"`
	DatabaseDSN     string `json:"database_dsn"`
	SQLiteDSN       string `json:"sqlite_dsn"`
	EnableHTTPS     bool   `json:"enable_https"`
	TLSCertPath     string `json:"tls_cert_path"`
	TLSKeyPath      string `json:"tls_key_path"`
	TrustedSubnet   string `json:"trusted_subnet"`
	GRPCAddress     string `json:"grpc_address"`
	JWTSecret       string `json:"jwt_secret"`
	CodeBytes       int    `json:"code_bytes"`
	CodeAttempts    int    `json:"code_attempts"`
	QRSize          int    `json:"qr_size"`
	LogLevel        string `json:"log_level"`
	Mode            string `json:"-"`
}

// NewConfig читает конфигурацию процесса из аргументов командной строки,
// окружения, .env и JSON-файла.
func NewConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load собирает конфигурацию. Приоритет: флаг > переменная окружения >
// JSON-файл (-c/CONFIG) > .env > значение по умолчанию.
func Load(args []string) (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_ADDRESS", "localhost:8080") // Значения по умолчанию
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FILE_STORAGE_PATH", "")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SQLITE_DSN", "")
	v.SetDefault("ENABLE_HTTPS", false)
	v.SetDefault("TLS_CERT_PATH", "cert.pem")
	v.SetDefault("TLS_KEY_PATH", "key.pem")
	v.SetDefault("TRUSTED_SUBNET", "")
	v.SetDefault("GRPC_ADDRESS", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CODE_BYTES", 9)
	v.SetDefault("CODE_ATTEMPTS", 5)
	v.SetDefault("QR_SIZE", 256)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	// Определяем флаги, но НЕ задаем в них значения по умолчанию
	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	serverAddress := fs.String("a", "", "server address")
	baseURL := fs.String("b", "", "base URL")
	fileStoragePath := fs.String("f", "", "file storage path (JSON lines journal)")
	databaseDSN := fs.String("d", "", "PostgreSQL DSN")
	sqliteDSN := fs.String("l", "", "SQLite file or libsql:// DSN")
	enableHTTPS := fs.Bool("s", false, "enable HTTPS")
	tlsCertPath := fs.String("cert", "", "path to TLS certificate")
	tlsKeyPath := fs.String("key", "", "path to TLS key")
	trustedSubnet := fs.String("t", "", "trusted subnet in CIDR format")
	grpcAddress := fs.String("g", "", "gRPC listen address")
	jwtSecret := fs.String("j", "", "JWT signing secret")
	logLevel := fs.String("log-level", "", "log level")
	configPath := fs.String("c", "", "path to JSON config file")
	fs.StringVar(configPath, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// .env не переопределяет переменные окружения
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	if *configPath == "" {
		*configPath = os.Getenv("CONFIG")
	}
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		v.SetConfigType("json")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", *configPath, err)
		}
	}

	cfg := &Config{
		ServerAddress:   v.GetString("SERVER_ADDRESS"),
		BaseURL:         v.GetString("BASE_URL"),
		FileStoragePath: v.GetString("FILE_STORAGE_PATH"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		SQLiteDSN:       v.GetString("SQLITE_DSN"),
		EnableHTTPS:     v.GetBool("ENABLE_HTTPS"),
		TLSCertPath:     v.GetString("TLS_CERT_PATH"),
		TLSKeyPath:      v.GetString("TLS_KEY_PATH"),
		TrustedSubnet:   v.GetString("TRUSTED_SUBNET"),
		GRPCAddress:     v.GetString("GRPC_ADDRESS"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		CodeBytes:       v.GetInt("CODE_BYTES"),
		CodeAttempts:    v.GetInt("CODE_ATTEMPTS"),
		QRSize:          v.GetInt("QR_SIZE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
	}

	// Если флаг передан, он главнее окружения
	override := func(flagVal string, target *string) {
		if flagVal != "" {
			*target = flagVal
		}
	}
	override(*serverAddress, &cfg.ServerAddress)
	override(*baseURL, &cfg.BaseURL)
	override(*fileStoragePath, &cfg.FileStoragePath)
	override(*databaseDSN, &cfg.DatabaseDSN)
	override(*sqliteDSN, &cfg.SQLiteDSN)
	override(*tlsCertPath, &cfg.TLSCertPath)
	override(*tlsKeyPath, &cfg.TLSKeyPath)
	override(*trustedSubnet, &cfg.TrustedSubnet)
	override(*grpcAddress, &cfg.GRPCAddress)
	override(*jwtSecret, &cfg.JWTSecret)
	override(*logLevel, &cfg.LogLevel)
	if *enableHTTPS {
		cfg.EnableHTTPS = true
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.Mode = cfg.detectMode()

	return cfg, cfg.Validate()
}

// Определяем режим работы
func (cfg *Config) detectMode() string {
	switch {
	case cfg.DatabaseDSN != "":
		return ModeDatabase
	case cfg.SQLiteDSN != "":
		return ModeSQLite
	case cfg.FileStoragePath != "":
		return ModeFile
	default:
		return ModeMemory
	}
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.ServerAddress == "" {
		errs = append(errs, errors.New("адрес сервера не может быть пустым"))
	}
	if cfg.BaseURL == "" {
		errs = append(errs, errors.New("базовый URL не может быть пустым"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET не задан"))
	}
	if cfg.EnableHTTPS && (cfg.TLSCertPath == "" || cfg.TLSKeyPath == "") {
		errs = append(errs, errors.New("для HTTPS нужны TLS_CERT_PATH и TLS_KEY_PATH"))
	}
	if cfg.TrustedSubnet != "" {
		if _, err := netip.ParsePrefix(cfg.TrustedSubnet); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_SUBNET: %w", err))
		}
	}
	if cfg.CodeAttempts <= 0 {
		errs = append(errs, errors.New("CODE_ATTEMPTS должен быть больше нуля"))
	}
	return errors.Join(errs...)
}
