package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/daylog/time-tracker/internal/cli"
)

// @title                       Daylog Time Tracker API
// @version                     1.0
// @description                 Per-user time entries: start/stop tracking, today's totals and per-day history.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT token.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}

	cli.Execute()
}
