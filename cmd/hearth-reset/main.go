// ABOUTME: Maintenance script that wipes a group's financial records
// ABOUTME: Deletes Approvals, then Ledgers, then FiscalYearCloses, printing counts

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/hearth-dev/hearth/internal/config"
	"github.com/hearth-dev/hearth/internal/store"
)

// getConfigPath mirrors the server's config resolution.
func getConfigPath() string {
	if envPath := os.Getenv("HEARTH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "hearth.yaml"
		}
		configDir = homeDir + "/.config"
	}

	return configDir + "/hearth/hearth.yaml"
}

func main() {
	if err := run(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run deletes the first group's financial records in dependency order:
// approvals reference ledgers, so they go first; fiscal year closes are
// independent and go last. The three phases are deliberately separate
// statements rather than one transaction, so a partial run can simply be
// re-run: each phase deletes whatever is left and reports the count.
func run(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	group, err := st.FirstGroup(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no groups exist")
	}
	if err != nil {
		return fmt.Errorf("finding group: %w", err)
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	cyan.Printf("Resetting financial records for group %q (%s)\n\n", group.Name, group.ID)

	n, err := st.DeleteGroupApprovals(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("deleting approvals: %w", err)
	}
	green.Print("  ✓ ")
	fmt.Printf("Deleted %d approvals\n", n)

	n, err = st.DeleteGroupLedgers(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("deleting ledgers: %w", err)
	}
	green.Print("  ✓ ")
	fmt.Printf("Deleted %d ledgers\n", n)

	n, err = st.DeleteGroupFiscalYearCloses(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("deleting fiscal year closes: %w", err)
	}
	green.Print("  ✓ ")
	fmt.Printf("Deleted %d fiscal year closes\n", n)

	fmt.Println()
	green.Println("Reset complete.")
	return nil
}
