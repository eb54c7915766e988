package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

var nodesFolder string

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Manage node directories below a configuration root",
}

var nodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		nodes, err := a.scaffolder.ListNodes(nodesFolder)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, nodes)
	},
}

var nodesCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Scaffold a new node from the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		layout, err := a.scaffolder.CreateNode(types.NodeTarget{Folder: nodesFolder, NodeName: args[0]})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, layout)
	},
}

var nodesRenameCmd = &cobra.Command{
	Use:   "rename FROM TO",
	Short: "Rename a node directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		layout, err := a.scaffolder.RenameNode(nodesFolder, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, layout)
	},
}

func init() {
	nodesCmd.PersistentFlags().StringVar(&nodesFolder, "folder", "", "configuration root")
	_ = nodesCmd.MarkPersistentFlagRequired("folder")
	nodesCmd.AddCommand(nodesListCmd, nodesCreateCmd, nodesRenameCmd)
	rootCmd.AddCommand(nodesCmd)
}
