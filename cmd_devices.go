package main

import (
	"github.com/spf13/cobra"

	"github.com/maastricht-university/companion/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		devices, err := device.ListCaptureDevices()
		if err != nil {
			return err
		}
		device.PrintCaptureDevices(cmd.OutOrStdout(), devices)
		return nil
	},
}
