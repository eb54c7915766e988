package main

import (
	"os"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the device catalog",
}

var catalogDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List device types as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, a.catalog.Devices())
	},
}

var catalogFiltersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List filters as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, a.catalog.Filters())
	},
}

var controllersCmd = &cobra.Command{
	Use:   "controllers",
	Short: "List controller profiles as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, a.controllers.List())
	},
}

func init() {
	catalogCmd.AddCommand(catalogDevicesCmd, catalogFiltersCmd)
	rootCmd.AddCommand(catalogCmd, controllersCmd)
}
