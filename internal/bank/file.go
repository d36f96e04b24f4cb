package bank

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/khota/quizrunner/internal/domain"
)

// LoadFile reads a bank from a YAML, JSON or TOML file. Unknown keys are rejected.
func LoadFile(file string) (domain.Bank, error) {
	var b domain.Bank

	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return b, fmt.Errorf("read bank from file %s: %w", file, err)
	}

	if err := v.Unmarshal(&b, func(c *mapstructure.DecoderConfig) {
		c.ErrorUnused = true
	}); err != nil {
		return b, fmt.Errorf("%w: decode %s: %v", ErrInvalid, file, err)
	}

	if err := ValidateBank(b); err != nil {
		return b, err
	}

	return b, nil
}
