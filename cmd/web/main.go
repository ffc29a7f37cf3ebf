package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/estate-tools/reportpipe/pkg/export/excel"
	"github.com/estate-tools/reportpipe/pkg/server"
	"github.com/estate-tools/reportpipe/pkg/services/report"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var specsDir string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the report generation web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&specsDir, "specs", "s", "specs",
		"Directory holding the report spec files")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	catalog := report.NewCatalog(specsDir, excel.NewRenderer())

	reports, err := catalog.ListReports(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read spec directory: %w", err)
	}
	logger.Info().Msgf("Spec directory `%s` successfully loaded.", specsDir)
	for _, name := range reports {
		logger.Info().Msgf("Report: `%s`", name)
	}

	mux := server.ConfigureRouter(server.Config{
		Dependencies: server.Dependencies{
			Reports: catalog,
			Logger:  logger,
		},
	})

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	addr := net.JoinHostPort(host, port)
	logger.Info().Msgf("starting server on %s", addr)

	return http.ListenAndServe(addr, mux)
}
