package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raciswarm/raciswarm/config"
)

var swarmsCmd = &cobra.Command{
	Use:   "swarms",
	Short: "List the swarms declared in the swarm file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := config.Load(swarmsPath)
		if err != nil {
			return fmt.Errorf("loading swarm file: %w", err)
		}
		if err := file.Validate(); err != nil {
			return fmt.Errorf("invalid swarm file: %w", err)
		}

		for _, s := range file.Swarms {
			fmt.Printf("%s  [%s]\n", color.New(color.Bold).Sprint(s.Name), strings.Join(s.Capabilities, ", "))
			for _, a := range s.Agents {
				fmt.Printf("  %-20s %s\n", a.ID, roleLabel(a.Role))
			}
		}
		return nil
	},
}

func roleLabel(role string) string {
	switch strings.ToLower(role) {
	case "responsible", "r":
		return color.GreenString("responsible")
	case "accountable", "a":
		return color.YellowString("accountable")
	case "consulted", "c":
		return color.CyanString("consulted")
	default:
		return "informed"
	}
}
