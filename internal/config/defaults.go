package config

const (
	defaultRetries                   = 1
	defaultCircuitBreakerMaxFailures = 5
	defaultCircuitBreakerHalfOpen    = 1
)

// defaults returns the values loaded before the file and environment layers.
func defaults() map[string]any {
	return map[string]any{
		"api.base_url":                        "http://localhost:8000/api/v1",
		"api.token":                           "",
		"api.timeout":                         "10s",
		"api.retries":                         defaultRetries,
		"api.circuit_breaker.max_failures":    defaultCircuitBreakerMaxFailures,
		"api.circuit_breaker.timeout":         "30s",
		"api.circuit_breaker.half_open_limit": defaultCircuitBreakerHalfOpen,

		"log.level":      "info",
		"log.format":     "console",
		"log.add_source": false,

		"server.address":       "127.0.0.1:8088",
		"server.read_timeout":  "5s",
		"server.write_timeout": "10s",
		"server.session_ttl":   "30m",

		"forms.dir":     "",
		"forms.openapi": "",
	}
}
