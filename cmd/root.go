/*
 * stalker-addon exposes a Stalker/MAG IPTV portal as a Stremio TV catalog.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lucasduport/stalker-addon/pkg/config"
	"github.com/lucasduport/stalker-addon/pkg/server"
	"github.com/lucasduport/stalker-addon/pkg/utils"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stalker-addon",
	Short: "Stremio add-on exposing a Stalker/MAG IPTV portal",
	Long: `stalker-addon serves the channels of a Stalker/MAG IPTV portal as a
Stremio TV catalog.

Each user's portal URL and MAC address select a playlist that an external
generator materializes into the cache folder; the add-on answers catalog,
stream and meta requests from that cached playlist.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		utils.ConfigureLogging(utils.LogConfig{
			Level:        viper.GetString("log-level"),
			DebugLogging: viper.GetBool("debug-logging"),
			FilePath:     viper.GetString("log-file"),
		})
		defer utils.Close()

		conf, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.NewServer(conf)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

// loadConfig assembles the server configuration from flags, env and config file.
func loadConfig() (*config.AddonConfig, error) {
	conf := config.Default()
	conf.HostConfig = &config.HostConfiguration{
		Hostname: viper.GetString("hostname"),
		Port:     viper.GetInt("port"),
	}
	conf.AdvertisedPort = viper.GetInt("advertised-port")
	conf.HTTPS = viper.GetBool("https")
	conf.CacheFolder = viper.GetString("cache-folder")
	conf.DefaultTimezone = viper.GetString("default-timezone")
	conf.FreshMinBytes = viper.GetInt64("fresh-min-bytes")
	conf.PlaylistMaxAge = viper.GetDuration("playlist-max-age")
	conf.Generator = config.GeneratorConfig{
		Command:       config.ParseCommand(viper.GetString("generator-cmd")),
		WorkDir:       viper.GetString("generator-workdir"),
		Timeout:       viper.GetDuration("generator-timeout"),
		MaxConcurrent: viper.GetInt("generator-max-concurrent"),
	}
	conf.AddonName = viper.GetString("addon-name")
	conf.PosterBaseURL = viper.GetString("poster-base-url")

	if err := conf.Validate(); err != nil {
		return nil, utils.ErrorWithLocation(fmt.Errorf("invalid configuration: %w", err))
	}
	return conf, nil
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	def := config.Default()

	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.stalker-addon.yaml)")

	// Basic configuration flags
	rootCmd.Flags().Int("port", def.HostConfig.Port, "Listening port")
	rootCmd.Flags().String("hostname", "", "Interface to listen on")
	rootCmd.Flags().Int("advertised-port", 0, "Port to use in generated URLs (for reverse proxy)")
	rootCmd.Flags().BoolP("https", "", false, "Use HTTPS for generated URLs")

	// Cache flags
	rootCmd.Flags().String("cache-folder", def.CacheFolder, "Folder holding cached playlists and saved configs")
	rootCmd.Flags().Int64("fresh-min-bytes", def.FreshMinBytes, "Minimum size of a reusable cached playlist")
	rootCmd.Flags().Duration("playlist-max-age", 0, "Regenerate cached playlists older than this (0 disables)")
	rootCmd.Flags().String("default-timezone", def.DefaultTimezone, "Timezone used when a configuration carries none")

	// Generator flags
	rootCmd.Flags().String("generator-cmd", strings.Join(def.Generator.Command, " "), "Playlist generator command; key, portal, MAC and timezone are appended")
	rootCmd.Flags().String("generator-workdir", "", "Working directory of the generator")
	rootCmd.Flags().Duration("generator-timeout", def.Generator.Timeout, "Maximum duration of one generator run")
	rootCmd.Flags().Int("generator-max-concurrent", 0, "Maximum generator runs across all sessions (0 = unlimited)")

	// Presentation flags
	rootCmd.Flags().String("addon-name", def.AddonName, "Add-on name shown in Stremio")
	rootCmd.Flags().String("poster-base-url", def.PosterBaseURL, "Base URL of the placeholder channel artwork")

	// Logging flags
	rootCmd.Flags().Bool("debug-logging", false, "Enable debug logging")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-file", "", "Also write logs to this file")

	// Bind all flags to viper
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal("Error binding PFlags to viper")
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory and current directory
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".stalker-addon")
	}

	// Replace hyphens with underscores in environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read environment variables
	viper.AutomaticEnv()

	// Read in config file if found
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
