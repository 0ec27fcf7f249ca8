package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	CORS     CORSConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret                    string
	AccessTokenExpirationTime time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Name     string
	Version  string
	Port     int
	Env      string
	LogLevel string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoanRemainderPolicy decides how the residual cents of a loan are paid.
type LoanRemainderPolicy string

const (
	// LoanRemainderLastInstallment makes the final installment absorb the remainder.
	LoanRemainderLastInstallment LoanRemainderPolicy = "last_installment"
	// LoanRemainderTruncate charges amount/installments on every installment.
	LoanRemainderTruncate LoanRemainderPolicy = "truncate"
)

// PayrollConfig holds payroll engine policies
type PayrollConfig struct {
	GenerationWorkers   int
	PreserveManualItems bool
	LoanRemainderPolicy LoanRemainderPolicy
	NetPayDueDay        int
	InssDueDay          int
	FgtsDueDay          int
	Currency            string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		slog.Warn("no .env file found, reading configuration from environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}
	connLifetime, err := time.ParseDuration(getEnv("DB_MAX_CONN_LIFETIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONN_LIFETIME: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "cmlabs-erp"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: connLifetime,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Name:     getEnv("APP_NAME", "erp-cmlabs"),
		Version:  getEnv("APP_VERSION", "v1.0.0"),
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	accessExp, err := time.ParseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_EXPIRATION: %w", err)
	}
	config.JWT = JWTConfig{
		Secret:                    getEnv("JWT_SECRET_KEY", ""),
		AccessTokenExpirationTime: accessExp,
	}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}
	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}

	payroll, err := loadPayrollConfig()
	if err != nil {
		return nil, err
	}
	config.Payroll = payroll

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadPayrollConfig() (PayrollConfig, error) {
	workers, err := getEnvInt("PAYROLL_GENERATION_WORKERS", 4)
	if err != nil {
		return PayrollConfig{}, err
	}
	preserveManual, err := strconv.ParseBool(getEnv("PAYROLL_PRESERVE_MANUAL_ITEMS", "true"))
	if err != nil {
		return PayrollConfig{}, fmt.Errorf("invalid PAYROLL_PRESERVE_MANUAL_ITEMS: %w", err)
	}
	netPayDay, err := getEnvInt("PAYROLL_NET_PAY_DUE_DAY", 5)
	if err != nil {
		return PayrollConfig{}, err
	}
	inssDay, err := getEnvInt("PAYROLL_INSS_DUE_DAY", 20)
	if err != nil {
		return PayrollConfig{}, err
	}
	fgtsDay, err := getEnvInt("PAYROLL_FGTS_DUE_DAY", 7)
	if err != nil {
		return PayrollConfig{}, err
	}

	return PayrollConfig{
		GenerationWorkers:   workers,
		PreserveManualItems: preserveManual,
		LoanRemainderPolicy: LoanRemainderPolicy(getEnv("PAYROLL_LOAN_REMAINDER_POLICY", string(LoanRemainderLastInstallment))),
		NetPayDueDay:        netPayDay,
		InssDueDay:          inssDay,
		FgtsDueDay:          fgtsDay,
		Currency:            getEnv("PAYROLL_CURRENCY", "BRL"),
	}, nil
}

// DefaultPayrollConfig returns the policies used when no environment overrides them.
func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		GenerationWorkers:   4,
		PreserveManualItems: true,
		LoanRemainderPolicy: LoanRemainderLastInstallment,
		NetPayDueDay:        5,
		InssDueDay:          20,
		FgtsDueDay:          7,
		Currency:            "BRL",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return c.Payroll.Validate()
}

func (p PayrollConfig) Validate() error {
	if p.GenerationWorkers < 1 {
		return fmt.Errorf("PAYROLL_GENERATION_WORKERS must be at least 1")
	}
	switch p.LoanRemainderPolicy {
	case LoanRemainderLastInstallment, LoanRemainderTruncate:
	default:
		return fmt.Errorf("PAYROLL_LOAN_REMAINDER_POLICY must be %q or %q", LoanRemainderLastInstallment, LoanRemainderTruncate)
	}
	for key, day := range map[string]int{
		"PAYROLL_NET_PAY_DUE_DAY": p.NetPayDueDay,
		"PAYROLL_INSS_DUE_DAY":    p.InssDueDay,
		"PAYROLL_FGTS_DUE_DAY":    p.FgtsDueDay,
	} {
		if day < 1 || day > 28 {
			return fmt.Errorf("%s must be between 1 and 28", key)
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
