package config

const (
	EnvPrefix = "KASIRPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvTerminalID     = "KASIRPOS_TERMINAL_ID"
	EnvAPIBaseURL     = "KASIRPOS_API_BASE_URL"
	EnvSearchDebounce = "KASIRPOS_SEARCH_DEBOUNCE"
)
