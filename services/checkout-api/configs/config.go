package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port          string `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReadDbAddr    string `mapstructure:"READ_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`

	// Optional: without Redis, leases and the status-check limiter are per replica.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Optional: without brokers, payment.confirmed events are not published.
	KafkaBrokers          string        `mapstructure:"KAFKA_BROKERS"`
	KafkaPaymentTopic     string        `mapstructure:"KAFKA_PAYMENT_TOPIC" validate:"required"`
	KafkaPaymentPartition int           `mapstructure:"KAFKA_PAYMENT_PARTITION" validate:"min=1"`
	KafkaPaymentRetention time.Duration `mapstructure:"KAFKA_PAYMENT_RETENTION"`

	PaymentMethodEnabled     bool   `mapstructure:"PAYMENT_METHOD_ENABLED"`
	PaymentMethodTitle       string `mapstructure:"PAYMENT_METHOD_TITLE" validate:"required"`
	PaymentMethodDescription string `mapstructure:"PAYMENT_METHOD_DESCRIPTION"`
	MerchantHandle           string `mapstructure:"MERCHANT_HANDLE" validate:"required"`

	CheckoutBaseURL    string `mapstructure:"CHECKOUT_BASE_URL" validate:"required,url"`
	ProviderAPIBaseURL string `mapstructure:"PROVIDER_API_BASE_URL" validate:"required,url"`
	QRCodeBaseURL      string `mapstructure:"QR_CODE_BASE_URL"`
	PublicBaseURL      string `mapstructure:"PUBLIC_BASE_URL" validate:"required,url"`
	ConfirmationURL    string `mapstructure:"CONFIRMATION_URL" validate:"required,url"`

	StatusCheckTimeout     time.Duration `mapstructure:"STATUS_CHECK_TIMEOUT" validate:"gt=0"`
	StatusCheckMaxAttempts int           `mapstructure:"STATUS_CHECK_MAX_ATTEMPTS" validate:"min=1,max=10"`
	StatusCheckBaseBackoff time.Duration `mapstructure:"STATUS_CHECK_BASE_BACKOFF" validate:"gt=0"`
	StatusCheckMaxBackoff  time.Duration `mapstructure:"STATUS_CHECK_MAX_BACKOFF" validate:"gtefield=StatusCheckBaseBackoff"`
	StatusCheckRateLimit   int           `mapstructure:"STATUS_CHECK_RATE_LIMIT" validate:"min=0"`
	StatusCheckBurst       int           `mapstructure:"STATUS_CHECK_BURST" validate:"min=1"`

	ReconcileTimeout  time.Duration `mapstructure:"RECONCILE_TIMEOUT" validate:"gt=0"`
	ReconcileLockTTL  time.Duration `mapstructure:"RECONCILE_LOCK_TTL" validate:"gt=0"`
	ReconcileLockWait time.Duration `mapstructure:"RECONCILE_LOCK_WAIT" validate:"gt=0"`

	// Base64 encoded 32-byte key. When set, return URLs are signed and unsigned callbacks are ignored.
	ReturnSigningKey string `mapstructure:"RETURN_SIGNING_KEY" validate:"omitempty,base64"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_PAYMENT_TOPIC", "payment-confirmed")
	viper.SetDefault("KAFKA_PAYMENT_PARTITION", "4")
	viper.SetDefault("KAFKA_PAYMENT_RETENTION", "168h")
	viper.SetDefault("PAYMENT_METHOD_ENABLED", "true")
	viper.SetDefault("PAYMENT_METHOD_TITLE", "Pix, credit card or boleto")
	viper.SetDefault("PAYMENT_METHOD_DESCRIPTION", "You will be redirected to a secure checkout page to complete the payment.")
	viper.SetDefault("CHECKOUT_BASE_URL", "https://checkout.infinitepay.io")
	viper.SetDefault("PROVIDER_API_BASE_URL", "https://api.infinitepay.io")
	viper.SetDefault("QR_CODE_BASE_URL", "https://chart.googleapis.com/chart?cht=qr&chs=300x300")
	viper.SetDefault("STATUS_CHECK_TIMEOUT", "5s")
	viper.SetDefault("STATUS_CHECK_MAX_ATTEMPTS", "3")
	viper.SetDefault("STATUS_CHECK_BASE_BACKOFF", "200ms")
	viper.SetDefault("STATUS_CHECK_MAX_BACKOFF", "2s")
	viper.SetDefault("STATUS_CHECK_RATE_LIMIT", "50")
	viper.SetDefault("STATUS_CHECK_BURST", "50")
	viper.SetDefault("RECONCILE_TIMEOUT", "30s")
	viper.SetDefault("RECONCILE_LOCK_TTL", "30s")
	viper.SetDefault("RECONCILE_LOCK_WAIT", "10s")

	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/checkout-api/configs")
	viper.AddConfigPath("./configs")
	_ = viper.ReadInConfig()

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
