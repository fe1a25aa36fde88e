package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/repository"
	"github.com/phonesentry/phonesentry/internal/service"
	"github.com/phonesentry/phonesentry/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentryctl",
	Short: "Operator tool for the PhoneSentry agent store",
	Long: `sentryctl operates directly on the agent's encrypted store.
Stop the agent before running mutating commands.`,
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set or change the master password",
	RunE:  runSetPassword,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the security event log to a sealed artifact",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [artifact]",
	Short: "Import a sealed log artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the most recent security events",
	RunE:  runEvents,
}

var eventsLimit int

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "number of events to print")
	rootCmd.AddCommand(setPasswordCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type services struct {
	store   *storage.Store
	credSvc *service.CredentialService
	audit   *service.AuditService
}

func openServices() (*services, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New("warn", "console")

	key, err := cfg.Storage.EncryptionKey()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.DataDir, key)
	if err != nil {
		return nil, err
	}

	eventRepo, err := repository.NewEventRepository(store, cfg.Storage.RotationCap)
	if err != nil {
		return nil, err
	}
	credRepo := repository.NewCredentialRepository(store)

	credSvc := service.NewCredentialService(credRepo, eventRepo, cfg, log)
	auditSvc := service.NewAuditService(eventRepo, credSvc, cfg, log)
	return &services{store: store, credSvc: credSvc, audit: auditSvc}, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

func runSetPassword(cmd *cobra.Command, args []string) error {
	svcs, err := openServices()
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	ctx := context.Background()
	set, err := svcs.credSvc.IsPasswordSet(ctx)
	if err != nil {
		return err
	}

	var current string
	if set {
		if current, err = promptPassword("Current password: "); err != nil {
			return err
		}
	}
	newPassword, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	if newPassword != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if err := svcs.credSvc.SetPassword(ctx, current, newPassword); err != nil {
		return err
	}
	fmt.Println("Master password updated.")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	svcs, err := openServices()
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	password, err := promptPassword("Export password: ")
	if err != nil {
		return err
	}
	path, err := svcs.audit.ExportLogs(context.Background(), password)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	svcs, err := openServices()
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	password, err := promptPassword("Import password: ")
	if err != nil {
		return err
	}
	ok, err := svcs.audit.ImportLogs(context.Background(), args[0], password)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("artifact could not be opened with the supplied password")
	}
	fmt.Println("Import complete.")
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	svcs, err := openServices()
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	events, err := svcs.audit.GetRecentEvents(context.Background(), eventsLimit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("%s  %-22s  %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Type, ev.Description)
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
	}
	return nil
}
