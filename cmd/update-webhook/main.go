// Command update-webhook points every Twilio number on the account at this
// deployment's /voice endpoint.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hotsheetiq/frontdesk/phone"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	_ = godotenv.Load()

	accountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if accountSID == "" || authToken == "" {
		log.Fatal().Msg("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN must be set")
	}
	if baseURL == "" {
		log.Fatal().Msg("PUBLIC_BASE_URL must be set")
	}

	updater := phone.NewUpdater(accountSID, authToken)
	updated, err := updater.PointAllAt(baseURL)
	if err != nil {
		log.Fatal().Err(err).Int("updated", updated).Msg("webhook update failed")
	}
	log.Info().Int("updated", updated).Msg("all numbers updated")
}
