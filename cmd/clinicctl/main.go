package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:8080")

	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Command line client for the clinic scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().String("server", "", "API base URL (env CLINIC_SERVER)")
	_ = v.BindPFlag("server", root.PersistentFlags().Lookup("server"))

	client := func() *apiClient {
		return newAPIClient(v.GetString("server"), out)
	}

	root.AddCommand(
		appAddCmd(client),
		appDelCmd(client),
		listAppCmd(client),
		freeAppCmd(client),
		listRemCmd(client),
		addRemCmd(client),
		delRemCmd(client),
		addDirCmd(client),
		addMedCmd(client),
		purchaseMedCmd(client),
		setThresholdCmd(client),
		consultCmd(client),
		statisticsCmd(client),
		setConsultFeeCmd(client),
	)
	return root
}
