package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"1"`

	JWTSecret               string `env:"JWT_SECRET"`
	JWTIssuer               string `env:"JWT_ISSUER" envDefault:"market-backend"`
	AccessTokenTTLMinutes   int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	ResetTokenTTLMinutes    int    `env:"PASSWORD_RESET_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	ResetMaskDeliveryFailed bool   `env:"RESET_MASK_DELIVERY_FAILURE" envDefault:"false"`

	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:4000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:4000,http://127.0.0.1:4000,http://localhost:3000,http://127.0.0.1:3000"`

	// Solo se informa al arrancar; ningún middleware lo aplica todavía.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"market.events"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrador"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
