package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/config"
	"github.com/monica-concierge/monica/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	cfg := config.DefaultConfig()
	if _, err := os.Stat(cfgPath); err == nil {
		existing, loadErr := config.Load(cfgPath)
		if loadErr == nil {
			cfg = *existing
		}
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)

	if err := writeSampleCatalog(filepath.Join(workspace, "catalog.example.yaml")); err != nil {
		return err
	}

	fmt.Printf("\n%s monica is ready!\n\n", cmdutils.Logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API key to %s\n", cfgPath)
	fmt.Println("     Gemini keys: https://aistudio.google.com/apikey")
	fmt.Println("  2. Chat: monica agent -m \"I need a jacket for autumn\"")
	fmt.Println("  3. Serve the storefront: monica serve")
	return nil
}

// writeSampleCatalog writes the built-in catalog as YAML so it can be copied
// and edited, then selected with catalog.path. An existing file is kept.
func writeSampleCatalog(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(map[string]any{"products": catalog.Default().Products()})
	if err != nil {
		return fmt.Errorf("encode sample catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sample catalog: %w", err)
	}
	fmt.Printf("  Created %s\n", filepath.Base(path))
	return nil
}
