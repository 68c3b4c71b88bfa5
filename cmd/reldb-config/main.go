// Package main provides a tool to inspect database module configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bool64/ctxd"
	"github.com/bool64/dev/version"
	"github.com/bool64/reldb/config"
	"github.com/bool64/reldb/database"
	"github.com/bool64/zapctxd"
	"github.com/swaggest/assertjson"
	"go.uber.org/zap"
)

func main() {
	ver := flag.Bool("version", false, "Print application version and exit.")
	schema := flag.Bool("schema", false, "Print JSON schema of configuration and exit.")
	confFile := flag.String("conf", "", "Config file with ENV variables to load.")
	file := flag.String("file", "", "JSON or YAML file with database module configuration.")
	prefix := flag.String("prefix", "DB", "Prefix of ENV variables.")
	ping := flag.Bool("ping", false, "Connect to configured database and exit.")
	asJSON := flag.Bool("json", false, "Print configuration as JSON, credentials are not redacted.")
	flag.Parse()

	if *ver {
		fmt.Println(version.Info().Version)

		return
	}

	if *schema {
		s, err := database.JSONSchema()
		if err != nil {
			log.Fatal(err)
		}

		j, err := assertjson.MarshalIndentCompact(json.RawMessage(s), "", " ", 100)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(j))

		return
	}

	cfg, err := loadConfig(*prefix, *confFile, *file)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	logger := zapctxd.New(zapctxd.Config{
		Level:  zap.InfoLevel,
		Output: os.Stderr,
	})
	logger.Info(ctx, "database module configuration loaded", "config", cfg.Redacted())

	if *ping {
		if err := pingDatabase(ctx, cfg, logger); err != nil {
			logger.Error(ctx, "database is not reachable", "error", err)
			os.Exit(1)
		}

		logger.Info(ctx, "database is reachable")

		return
	}

	if *asJSON {
		j, err := assertjson.MarshalIndentCompact(cfg, "", " ", 100)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(j))

		return
	}

	fmt.Println(cfg.Redacted())
}

func loadConfig(prefix, confFile, file string) (database.ModuleConfig, error) {
	cfg := database.DefaultModuleConfig()

	if file != "" {
		err := config.LoadFile(file, &cfg)

		return cfg, err
	}

	var cfgLoaders []func() error
	if confFile != "" && confFile != ".env" {
		cfgLoaders = append(cfgLoaders, config.WithEnvFiles(confFile))
	}

	err := config.Load(prefix, &cfg, cfgLoaders...)

	return cfg, err
}

func pingDatabase(ctx context.Context, cfg database.ModuleConfig, logger ctxd.Logger) error {
	driverName, conn, err := database.Connector(cfg)
	if err != nil {
		return err
	}

	st, err := database.SetupStorage(ctx, cfg, logger, nil, driverName, conn, nil)
	if err != nil {
		return err
	}

	return st.DB().Close()
}
