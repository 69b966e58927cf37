package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/providers"
	"github.com/monica-concierge/monica/internal/session"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monica status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s monica Status\n\n", cmdutils.Logo)

	fmt.Printf("Config:    %s %s\n", cfgPath, mark(os.Stat(cfgPath)))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	fmt.Printf("Workspace: %s %s\n", ws, mark(os.Stat(ws)))
	fmt.Printf("Model:     %s\n", cfg.Agents.Defaults.Model)

	if c, err := catalog.Load(cfg.CatalogPath()); err != nil {
		fmt.Printf("Catalog:   ✗ %v\n", err)
	} else {
		source := cfg.CatalogPath()
		if source == "" {
			source = "built-in"
		}
		fmt.Printf("Catalog:   %s (%d products)\n", source, c.Len())
	}

	if sessions, err := session.NewManager(ws); err == nil {
		fmt.Printf("Sessions:  %d\n", len(sessions.ListSessions()))
	}
	fmt.Printf("Gateway:   %s:%d\n\n", cfg.Gateway.Host, cfg.Gateway.Port)

	active := cfg.MatchProvider("").Name
	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		label := spec.Label()
		if spec.Name == active {
			label += " *"
		}
		switch {
		case spec.IsLocal || spec.Name == "custom":
			if p.APIBase != "" {
				fmt.Printf("  %-20s ✓ %s\n", label, p.APIBase)
			} else {
				fmt.Printf("  %-20s (not set)\n", label)
			}
		case p.APIKey != "":
			fmt.Printf("  %-20s ✓\n", label)
		case spec.EnvKey != "" && os.Getenv(spec.EnvKey) != "":
			fmt.Printf("  %-20s ✓ (%s)\n", label, spec.EnvKey)
		default:
			fmt.Printf("  %-20s (not set)\n", label)
		}
	}
	return nil
}

func mark(_ os.FileInfo, err error) string {
	if err != nil {
		return "✗"
	}
	return "✓"
}
