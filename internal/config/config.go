package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var Config Configuration

type Configuration struct {
	LogLevel int `json:"logLevel"`

	// BrokerAddr is where cmd/server listens, BrokerURL is where peers dial it.
	BrokerAddr string `json:"brokerAddr"`
	BrokerURL  string `json:"brokerURL"`
	Namespace  string `json:"namespace"`

	Codec  string `json:"codec"`
	Camera string `json:"camera"`

	TickRate     int `json:"tickRate"`
	VideoFPS     int `json:"videoFPS"`
	VideoQuality int `json:"videoQuality"`
	StartDelayMs int `json:"startDelayMs"`

	BounceMultiplier float64 `json:"bounceMultiplier"`
	MaxSpeed         float64 `json:"maxSpeed"`
}

func Default() Configuration {
	return Configuration{
		LogLevel:         int(slog.LevelInfo),
		BrokerAddr:       "127.0.0.1:9000",
		BrokerURL:        "ws://127.0.0.1:9000",
		Namespace:        "neon-pong-",
		Codec:            "json",
		Camera:           "pattern",
		TickRate:         60,
		VideoFPS:         15,
		VideoQuality:     30,
		StartDelayMs:     1500,
		BounceMultiplier: 1.05,
	}
}

// LoadConfig reads the JSON config at path (config.json when empty) over the defaults, then
// applies .env and NEONPONG_* environment overrides.
func LoadConfig(path string) {
	var c = Default()

	var cf []byte
	var err error
	if path != "" {
		cf, err = os.ReadFile(path)
	} else {
		cf, err = os.ReadFile("config.json")
	}
	if err != nil {
		slog.Info("failed to open config at path provided, using default config instead")
	} else if err = json.Unmarshal(cf, &c); err != nil {
		slog.Info("failed to read configuration, using default config instead...", slog.Any("error", err))
		c = Default()
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	applyEnv(&c)

	Config = c
}

func applyEnv(c *Configuration) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Info("ignoring malformed environment value", slog.String("key", key), slog.String("value", v))
			return
		}
		*dst = n
	}

	num("NEONPONG_LOG_LEVEL", &c.LogLevel)
	str("NEONPONG_BROKER_ADDR", &c.BrokerAddr)
	str("NEONPONG_BROKER_URL", &c.BrokerURL)
	str("NEONPONG_NAMESPACE", &c.Namespace)
	str("NEONPONG_CODEC", &c.Codec)
	str("NEONPONG_CAMERA", &c.Camera)
}
