// =============================
// File: internal/dex/pumpswap/config.go
// =============================
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Config хранит конфигурацию для взаимодействия с PumpSwap.
type Config struct {
	ProgramID      solana.PublicKey
	GlobalConfig   solana.PublicKey
	EventAuthority solana.PublicKey

	// TokenMint — целевой токен, торгуемый против WSOL.
	TokenMint solana.PublicKey

	// Параметры цикла подтверждения.
	ConfirmRetries int
	ConfirmDelayMS int

	// ComputeUnits — лимит вычислительных единиц на транзакцию (0 — не задавать).
	ComputeUnits uint32
}

const (
	DefaultConfirmRetries = 5
	DefaultConfirmDelayMS = 1000
	DefaultComputeUnits   = 200_000
)

// GetDefaultConfig возвращает конфигурацию по умолчанию для PumpSwap.
func GetDefaultConfig() *Config {
	eventAuthority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("__event_authority")},
		PumpSwapProgramID,
	)
	if err != nil {
		eventAuthority = solana.PublicKey{}
	}

	return &Config{
		ProgramID:      PumpSwapProgramID,
		EventAuthority: eventAuthority,
		ConfirmRetries: DefaultConfirmRetries,
		ConfirmDelayMS: DefaultConfirmDelayMS,
		ComputeUnits:   DefaultComputeUnits,
	}
}

// SetupForToken настраивает экземпляр конфигурации для определённого токена.
func (cfg *Config) SetupForToken(tokenMint string, logger *zap.Logger) error {
	if tokenMint == "" {
		return fmt.Errorf("token mint address is required")
	}

	var err error
	cfg.TokenMint, err = solana.PublicKeyFromBase58(tokenMint)
	if err != nil {
		return fmt.Errorf("invalid token mint address: %w", err)
	}

	globalConfigAddr, _, err := cfg.DeriveGlobalConfigAddress()
	if err != nil {
		return fmt.Errorf("failed to derive global config address: %w", err)
	}
	cfg.GlobalConfig = globalConfigAddr

	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority, _, err = solana.FindProgramAddress(
			[][]byte{[]byte("__event_authority")},
			cfg.ProgramID,
		)
		if err != nil {
			return fmt.Errorf("failed to derive event authority: %w", err)
		}
	}

	logger.Info("PumpSwap configuration prepared",
		zap.String("program_id", cfg.ProgramID.String()),
		zap.String("global_config", cfg.GlobalConfig.String()),
		zap.String("token_mint", cfg.TokenMint.String()),
		zap.String("event_authority", cfg.EventAuthority.String()))

	return nil
}

// DeriveGlobalConfigAddress вычисляет PDA для глобального аккаунта конфигурации.
func (cfg *Config) DeriveGlobalConfigAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("global_config")},
		cfg.ProgramID,
	)
}

// DeriveCoinCreatorVaultAuthority вычисляет PDA authority для хранилища
// комиссий создателя токена.
func (cfg *Config) DeriveCoinCreatorVaultAuthority(coinCreator solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("creator_vault"), coinCreator.Bytes()},
		cfg.ProgramID,
	)
}
