// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	WalletsFile  string   `mapstructure:"wallets_file"`
	TasksFile    string   `mapstructure:"tasks_file"`
	BuySlippage  float64  `mapstructure:"buy_slippage"`
	SellSlippage float64  `mapstructure:"sell_slippage"`
	PriorityFee  uint64   `mapstructure:"priority_fee"`

	ConfirmRetries int `mapstructure:"confirm_retries"`
	ConfirmDelay   int `mapstructure:"confirm_delay"`
	ConfirmTimeout int `mapstructure:"confirm_timeout"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	Workers      int    `mapstructure:"workers"`
}

const (
	// DefaultSlippage – допустимое проскальзывание в процентах.
	DefaultSlippage = 0.3
	// DefaultPriorityFee – цена compute unit в микро-лампортах.
	DefaultPriorityFee = 1_500_000
	// DefaultConfirmRetries – количество опросов статуса подтверждения.
	DefaultConfirmRetries = 5
	// DefaultConfirmDelayMS – пауза между опросами, мс.
	DefaultConfirmDelayMS = 1000
	// DefaultConfirmTimeoutMS – общий дедлайн ожидания подтверждения, мс.
	DefaultConfirmTimeoutMS = 30_000
	DefaultWorkers          = 5
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"buy_slippage":    DefaultSlippage,
		"sell_slippage":   DefaultSlippage,
		"priority_fee":    DefaultPriorityFee,
		"confirm_retries": DefaultConfirmRetries,
		"confirm_delay":   DefaultConfirmDelayMS,
		"confirm_timeout": DefaultConfirmTimeoutMS,
		"workers":         DefaultWorkers,
		"wallets_file":    "configs/wallets.csv",
		"tasks_file":      "configs/tasks.csv",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyRPCListOverride(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.BuySlippage < 0 || cfg.BuySlippage > 99 {
		return errors.New("buy_slippage must be within [0, 99]")
	}
	if cfg.SellSlippage < 0 || cfg.SellSlippage > 99 {
		return errors.New("sell_slippage must be within [0, 99]")
	}
	if cfg.ConfirmRetries <= 0 {
		return errors.New("invalid confirm_retries")
	}
	if cfg.ConfirmDelay <= 0 {
		return errors.New("invalid confirm_delay")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// bindEnvironmentVariables привязывает каждый ключ конфигурации к переменной
// окружения PUMPSWAP_<KEY>. Unmarshal не видит AutomaticEnv без явного
// BindEnv, поэтому ключи перечислены поимённо.
func bindEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix("PUMPSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	keys := []string{
		"wallets_file", "tasks_file",
		"buy_slippage", "sell_slippage", "priority_fee",
		"confirm_retries", "confirm_delay", "confirm_timeout",
		"debug_logging", "log_file", "workers",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

// applyRPCListOverride обрабатывает PUMPSWAP_RPC_LIST отдельно:
// список эндпоинтов задаётся одной строкой через запятую.
func applyRPCListOverride(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	rpcs := strings.Split(envRPCList, ",")
	var cleanRPCs []string
	for _, rpc := range rpcs {
		clean := strings.TrimSpace(rpc)
		if clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}
