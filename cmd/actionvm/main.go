package main

import "github.com/spf13/viper"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fatal(err)
	}
}
