package config

import (
    "log"

    "github.com/spf13/viper"
)

type Config struct {
    Environment         string `mapstructure:"APP_ENV"`
    Port                string `mapstructure:"PORT"`
    DBUrl               string `mapstructure:"DB_URL"`
    ProvisioningURL     string `mapstructure:"PROVISIONING_URL"`
    TelegramBotToken    string `mapstructure:"TELEGRAM_BOT_TOKEN"`
    TelegramAdminChatID string `mapstructure:"TELEGRAM_CHAT_ID"`
    AMQPUrl             string `mapstructure:"AMQP_URL"`
}

func LoadConfig() Config {
    viper.SetConfigFile(".env")
    viper.AutomaticEnv()

    viper.SetDefault("APP_ENV", "production")
    viper.SetDefault("PORT", "8080")

    if err := viper.ReadInConfig(); err != nil {
        log.Println("No .env file found, using env variables only")
    }

    var c Config
    if err := viper.Unmarshal(&c); err != nil {
        log.Fatal("config unmarshal error:", err)
    }

    return c
}

// IsDevelopment reports whether the service runs with diagnostic behavior
// enabled (OTP codes echoed in send responses).
func (c Config) IsDevelopment() bool {
    return c.Environment == "development"
}

// TelegramEnabled reports whether a bot token is configured for delivery.
func (c Config) TelegramEnabled() bool {
    return c.TelegramBotToken != ""
}
