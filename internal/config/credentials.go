package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Credentials are the Microsoft login details used to pre-fill the
// sign-in form. Both fields are optional; without them the login command
// simply waits for the user to type everything by hand.
type Credentials struct {
	Email    string
	Password string
}

// LoadCredentials reads MS_EMAIL and MS_PASSWORD from the environment,
// sourcing envFile first when it exists. A missing file is not an error;
// CI and shells often export the variables directly.
func LoadCredentials(envFile string) Credentials {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			slog.Default().Warn("could not load env file", "path", envFile, "error", err)
		}
	}
	return Credentials{
		Email:    os.Getenv("MS_EMAIL"),
		Password: os.Getenv("MS_PASSWORD"),
	}
}
