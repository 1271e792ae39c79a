package config

import (
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks all configuration sections.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.API),
		validation.Field(&c.Log),
		validation.Field(&c.Server),
	)
}

func (a APIConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&a.Timeout, validation.Required, validation.Min(int64(0)).Exclusive()),
		validation.Field(&a.Retries, validation.Min(0), validation.Max(10)),
		validation.Field(&a.CircuitBreaker),
	)
}

func (b CircuitBreakerConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.MaxFailures, validation.Required, validation.Min(1)),
		validation.Field(&b.Timeout, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.Required, validation.In("json", "console", "pretty")),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
		validation.Field(&s.ReadTimeout, validation.Required),
		validation.Field(&s.WriteTimeout, validation.Required),
		validation.Field(&s.SessionTTL, validation.Required),
	)
}

func absoluteURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return validation.NewError("hitas.config.base_url", "must be an absolute URL")
	}
	return nil
}
