package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// qualified variable names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "RECOLORA_APP_ENV"
	EnvDBDSN  = "RECOLORA_DB_DSN"
	EnvDBHost = "RECOLORA_DB_HOST"
	EnvDBUser = "RECOLORA_DB_USER"
	EnvDBName = "RECOLORA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
