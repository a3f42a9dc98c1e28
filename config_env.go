package gymauth

import (
	"github.com/caarlos0/env/v11"
)

// envConfig is the flat env-var view of Config. Parsed with caarlos0/env;
// pair with godotenv in the binary when a .env file should be honored.
type envConfig struct {
	SuperAdminEmail  string `env:"GYMAUTH_SUPER_ADMIN_EMAIL"`
	PasswordMinLen   int    `env:"GYMAUTH_PASSWORD_MIN_LENGTH" envDefault:"6"`
	RecoveryRedirect string `env:"GYMAUTH_RECOVERY_REDIRECT"`
	SignInPath       string `env:"GYMAUTH_SIGNIN_PATH" envDefault:"/auth"`
	AuditEnabled     bool   `env:"GYMAUTH_AUDIT_ENABLED" envDefault:"true"`
	AuditBufferSize  int    `env:"GYMAUTH_AUDIT_BUFFER" envDefault:"64"`
	AuditDropIfFull  bool   `env:"GYMAUTH_AUDIT_DROP_IF_FULL" envDefault:"true"`
	DispatchBuffer   int    `env:"GYMAUTH_DISPATCH_BUFFER" envDefault:"16"`
	MetricsEnabled   bool   `env:"GYMAUTH_METRICS_ENABLED" envDefault:"true"`
}

// LoadConfigFromEnv builds a validated Config from GYMAUTH_* environment
// variables, starting from DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.SuperAdmin.Email = ec.SuperAdminEmail
	cfg.Password.MinLength = ec.PasswordMinLen
	cfg.Recovery.RedirectTarget = ec.RecoveryRedirect
	cfg.Gate.SignInPath = ec.SignInPath
	cfg.Audit.Enabled = ec.AuditEnabled
	cfg.Audit.BufferSize = ec.AuditBufferSize
	cfg.Audit.DropIfFull = ec.AuditDropIfFull
	cfg.Dispatch.BufferSize = ec.DispatchBuffer
	cfg.Metrics.Enabled = ec.MetricsEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
