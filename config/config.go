package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"inventory-core/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	DB        DB
	Redis     Redis
	Kafka     Kafka
	Inventory Inventory
	Cleanup   Cleanup
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type Inventory struct {
	// Ограничение цикла оптимистичных повторов для записи в остатки
	MaxRetries   int
	RetryBackoff time.Duration

	// Срок жизни резервации по умолчанию
	ReservationTTL time.Duration

	// Режим сопоставления вариантов: key | label | attributes.
	// Вычисляется один раз из флагов USE_VARIANT_LABEL / USE_VARIANT_ATTRIBUTES
	// и передаётся в сервис при конструировании.
	VariantMatchMode string
}

type Cleanup struct {
	SweepInterval time.Duration
}

func Load(log *zap.Logger) *Config {
	return &Config{
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnv("DB_SSLMODE", log),
			},
		},
		Redis: Redis{
			Enabled:    os.Getenv("REDIS_ENABLED") == "true",
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         atoiDefault(os.Getenv("REDIS_DB"), 0),
			TTLSeconds: atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 60),
		},
		Kafka: Kafka{
			Enabled: os.Getenv("KAFKA_ENABLED") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   envDefault("KAFKA_TOPIC_INVENTORY", "inventory-events"),
		},
		Inventory: Inventory{
			MaxRetries:       atoiDefault(os.Getenv("INVENTORY_MAX_RETRIES"), 3),
			RetryBackoff:     time.Duration(atoiDefault(os.Getenv("INVENTORY_RETRY_BACKOFF_MS"), 50)) * time.Millisecond,
			ReservationTTL:   time.Duration(atoiDefault(os.Getenv("RESERVATION_TTL_MS"), 1800000)) * time.Millisecond,
			VariantMatchMode: variantMatchMode(),
		},
		Cleanup: Cleanup{
			SweepInterval: time.Duration(atoiDefault(os.Getenv("RESERVATION_SWEEP_INTERVAL_SECONDS"), 300)) * time.Second,
		},
	}
}

// variantMatchMode сводит исторические переключатели поведения в одно значение.
// Атрибуты имеют приоритет над label, как в старой схеме флагов.
func variantMatchMode() string {
	if os.Getenv("USE_VARIANT_ATTRIBUTES") == "true" {
		return "attributes"
	}
	if os.Getenv("USE_VARIANT_LABEL") == "true" {
		return "label"
	}
	return "key"
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func envDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
