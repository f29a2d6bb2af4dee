package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

var fieldRules = newFieldValidator()

// newFieldValidator reports fields by their config key, e.g.
// database.max_idle_conns.
func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// validate returns every violation: field rules first, then the rules that
// span sections.
func (c *Config) validate() error {
	var err error
	if verr := fieldRules.Struct(c); verr != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(verr, &fieldErrs) {
			return verr
		}
		for _, fe := range fieldErrs {
			err = multierr.Append(err, describe(fe))
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		err = multierr.Append(err, errors.New("kafka.brokers is required when kafka.enabled is true"))
	}
	if c.App.Env == "production" {
		err = multierr.Append(err, c.validateProduction())
	}
	return err
}

func (c *Config) validateProduction() error {
	var err error
	check := func(bad bool, msg string) {
		if bad {
			err = multierr.Append(err, errors.New(msg))
		}
	}
	check(c.Database.Password == "", "database.password is required in production")
	check(c.Database.SSLMode == "disable", "database.sslmode cannot be 'disable' in production")
	check(c.Database.AutoMigrate, "database.auto_migrate must be false in production, run cmd/migrate instead")
	check(slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "http.cors_allow_origins cannot be '*' in production")
	check(c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production; traces would carry raw SQL")
	return err
}

func describe(fe validator.FieldError) error {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	sibling := func() string {
		section, _, _ := strings.Cut(key, ".")
		return section + "." + snake(fe.Param())
	}

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "hostname_port":
		return fmt.Errorf("%s %q is not a host:port address", key, fe.Value())
	case "gt":
		return fmt.Errorf("%s must be greater than %s", key, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return fmt.Errorf("%s cannot be negative", key)
		}
		return fmt.Errorf("%s must be at least %s", key, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be at most %s, got %v", key, fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Errorf("%s (%v) cannot exceed %s", key, fe.Value(), sibling())
	case "nefield":
		return fmt.Errorf("%s must differ from %s", key, sibling())
	case "oneof":
		return fmt.Errorf("%s %q is not supported, want one of %s", key, fe.Value(), fe.Param())
	case "timezone":
		return fmt.Errorf("%s: unknown time zone %q", key, fe.Value())
	default:
		return fmt.Errorf("%s %v fails %s", key, fe.Value(), fe.Tag())
	}
}

// snake turns a Go field name into its config key: MaxOpenConns becomes
// max_open_conns.
func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
