// Package main runs the JSON Graph REST API over the store selected by configuration.
//
// Configuration is read from the JSON file named by GRAPHKV_CONFIG (optional) and then overlaid
// with GRAPHKV_* environment variables, which may also come from a .env file.
package main

import (
	"flag"
	"fmt"
	log "log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sharedcode/graphkv"
	_ "github.com/sharedcode/graphkv/aws_s3"
	_ "github.com/sharedcode/graphkv/cassandra"
	"github.com/sharedcode/graphkv/datasource"
	_ "github.com/sharedcode/graphkv/fs"
	"github.com/sharedcode/graphkv/guard"
	_ "github.com/sharedcode/graphkv/inmemory"
	"github.com/sharedcode/graphkv/keycodec"
	_ "github.com/sharedcode/graphkv/redis"
	"github.com/sharedcode/graphkv/restapi"
)

// @title graphkv JSON Graph API
// @version 1.0
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	addr := flag.String("addr", "localhost:8080", "address to listen on")
	flag.Parse()

	// .env is optional, the environment wins over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	graphkv.ConfigureLogging()

	if err := run(*addr); err != nil {
		log.Error("server stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run(addr string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}
	store, err := graphkv.NewStore(opts)
	if err != nil {
		return fmt.Errorf("failed to create %s store: %w", opts.StoreType, err)
	}
	if c, ok := store.(graphkv.CloseableStore); ok {
		defer c.Close()
	}
	if opts.WriteGuard != "" {
		if store, err = guard.New(store, opts.WriteGuard); err != nil {
			return fmt.Errorf("invalid write guard: %w", err)
		}
	}

	codec := keycodec.New(opts.KeySeparator)
	if opts.KeyPrefix != "" {
		codec = keycodec.WithPrefix(codec, opts.KeyPrefix)
	}
	ds, err := datasource.New(store, datasource.WithKeyCodec(codec))
	if err != nil {
		return err
	}
	router, err := restapi.NewRouter(ds, opts.MaxPaths)
	if err != nil {
		return err
	}
	log.Info("serving JSON Graph", "addr", addr, "store", opts.StoreType.String(), "version", graphkv.Version)
	return router.Run(addr)
}

func loadOptions() (graphkv.Options, error) {
	opts := graphkv.DefaultOptions()
	if fn := os.Getenv("GRAPHKV_CONFIG"); fn != "" {
		var err error
		if opts, err = graphkv.LoadOptions(fn); err != nil {
			return opts, err
		}
	}
	if err := opts.ApplyEnv(); err != nil {
		return opts, err
	}
	return opts, nil
}
