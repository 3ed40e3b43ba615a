package config

// EnvPrefix is the envconfig prefix shared by every configuration struct.
const EnvPrefix = "PRICING"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PRICING_DB_DSN"
	EnvDBHost = "PRICING_DB_HOST"
	EnvDBUser = "PRICING_DB_USER"
	EnvDBName = "PRICING_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
