package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate runs struct-tag validation plus the cross-field rules that
// can't be expressed in a tag.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	seen := make(map[uint64]bool, len(cfg.BlockServices))
	for i, bs := range cfg.BlockServices {
		if seen[bs.ID] {
			return fmt.Errorf("block_services[%d]: duplicate block service id %d", i, bs.ID)
		}
		seen[bs.ID] = true
	}

	for i, f := range cfg.LocationFailover {
		if f.FromLocation == f.ToLocation && f.FromStorageClass == f.ToStorageClass {
			return fmt.Errorf("location_failover[%d]: from and to must differ", i)
		}
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
