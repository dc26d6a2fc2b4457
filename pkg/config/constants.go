package config

const (
	EnvPrefix = "LIA"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv     = "LIA_APP_ENV"
	EnvAPIBaseURL = "LIA_API_BASE_URL"
	EnvAuthToken  = "LIA_AUTH_TOKEN"
	EnvStorageDB  = "LIA_STORAGE_PATH"
	EnvRedisURL   = "LIA_REDIS_URL"
)
