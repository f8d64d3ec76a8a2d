package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers gripgate-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("grip_key", validateGripKey); err != nil {
		return fmt.Errorf("failed to register grip_key validator: %w", err)
	}
	return nil
}

// validateGripKey validates a proxy key field. Valid values: plain text, or
// "base64:<valid base64 data>".
func validateGripKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if data, ok := strings.CutPrefix(key, "base64:"); ok {
		if data == "" {
			return false
		}
		_, err := base64.StdEncoding.DecodeString(data)
		return err == nil
	}
	return true
}

// Validate validates the Config using struct tags plus cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Cross-field: grip.url must parse if set.
	if c.Grip.URL != "" {
		if _, err := ParseGripURL(c.Grip.URL); err != nil {
			return fmt.Errorf("grip.url: %w", err)
		}
	}

	// Cross-field: requiring a proxy without configuring one can never
	// accept a request.
	proxies, err := c.AllProxies()
	if err != nil {
		return err
	}
	if c.Grip.ProxyRequired && len(proxies) == 0 {
		return errors.New("grip: proxy_required is set but no proxies are configured")
	}

	return nil
}

// formatValidationErrors converts validator errors into actionable
// messages keyed by config path.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", configPath(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}

// configPath converts a validator namespace like "Config.Grip.Proxies[0].Key"
// into the YAML-style path "grip.proxies[0].key".
func configPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}
