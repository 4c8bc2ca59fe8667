package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"parcelhop/internal/utils"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"

	minDeliveryCodeKey = 32
)

type Env struct {
	AppAddr             string
	GinMode             string
	LogLevel            string
	Storage             string
	DBDSN               string
	DBMaxOpenConns      int
	JWTSecret           string
	PlatformFeeRate     float64
	DeliveryMaxAttempts int
	PendingPaymentTTL   time.Duration
	DeliveryCodeKey     string
	CORSAllowedOrigins  []string
}

// Error lists every invalid setting found by LoadEnv.
type Error struct {
	Problems []string
}

func (e Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_addr", ":8080")
	v.SetDefault("gin_mode", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("storage", StorageMySQL)
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_max_open_conns", "25")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("platform_fee_rate", "0.12")
	v.SetDefault("delivery_max_attempts", "5")
	v.SetDefault("pending_payment_ttl", "24h")
	v.SetDefault("delivery_code_key", "")
	v.SetDefault("cors_allowed_origins", "")
}

// LoadEnv reads the environment, optionally layered over the file named by
// PARCELHOP_CONFIG. Environment variables win over the file.
func LoadEnv() (Env, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("parcelhop_config")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Env{}, fmt.Errorf("config.LoadEnv: read %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Env, error) {
	var problems []string
	bad := func(key, msg string) {
		problems = append(problems, strings.ToUpper(key)+" "+msg)
	}
	str := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	env := Env{
		AppAddr:            str("app_addr"),
		GinMode:            str("gin_mode"),
		LogLevel:           strings.ToLower(str("log_level")),
		Storage:            strings.ToLower(str("storage")),
		DBDSN:              str("db_dsn"),
		JWTSecret:          str("jwt_secret"),
		DeliveryCodeKey:    str("delivery_code_key"),
		CORSAllowedOrigins: utils.SplitList(str("cors_allowed_origins")),
	}

	if env.AppAddr == "" {
		bad("app_addr", "is required")
	}
	switch env.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		bad("log_level", "must be one of debug, info, warn, error")
	}
	switch env.Storage {
	case StorageMySQL:
		if env.DBDSN == "" {
			bad("db_dsn", "is required when STORAGE=mysql")
		}
	case StorageMemory:
	default:
		bad("storage", "must be mysql or memory")
	}
	if env.JWTSecret == "" {
		bad("jwt_secret", "is required")
	}
	if len(env.DeliveryCodeKey) < minDeliveryCodeKey {
		bad("delivery_code_key", fmt.Sprintf("must be at least %d bytes", minDeliveryCodeKey))
	}

	if n, err := strconv.Atoi(str("db_max_open_conns")); err != nil || n <= 0 {
		bad("db_max_open_conns", "must be a positive integer")
	} else {
		env.DBMaxOpenConns = n
	}
	if n, err := strconv.Atoi(str("delivery_max_attempts")); err != nil || n <= 0 {
		bad("delivery_max_attempts", "must be a positive integer")
	} else {
		env.DeliveryMaxAttempts = n
	}
	if r, err := strconv.ParseFloat(str("platform_fee_rate"), 64); err != nil || r < 0 || r >= 1 {
		bad("platform_fee_rate", "must be a number in [0, 1)")
	} else {
		env.PlatformFeeRate = r
	}
	if d, err := time.ParseDuration(str("pending_payment_ttl")); err != nil || d <= 0 {
		bad("pending_payment_ttl", "must be a positive duration such as 24h")
	} else {
		env.PendingPaymentTTL = d
	}

	if len(problems) > 0 {
		return Env{}, Error{Problems: problems}
	}
	return env, nil
}
