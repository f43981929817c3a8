package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

var API_ENV = os.Getenv("APP_ENV")

// PaymentWindow is how long a buyer has to complete payment before the
// transaction is expired and its reservation released.
func PaymentWindow() time.Duration {
	raw := os.Getenv("PAYMENT_WINDOW_HOURS")
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 {
		hours = 2
	}
	return time.Duration(hours) * time.Hour
}

func WelcomePoints() int64 {
	raw := os.Getenv("REFERRAL_WELCOME_POINTS")
	points, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || points < 0 {
		return 10000
	}
	return points
}
