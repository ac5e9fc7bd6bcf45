// Copyright 2025 The DixServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the dixserve editing assistant and its CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

DixServe helps editing Apertium dictionary XML: it finds the element around the cursor,
moves between the interesting spots of a file, guesses new entries from the ones already
there, and rewrites restrictions and pardefs. It runs as a MessagePack IPC server that an
editor spawns, optionally with an HTTP surface next to it, or as a CLI for testing guesses.

# Usage

Start the IPC server with default settings:

	dixserve

Enable debug logs and serve HTTP on a local port as well:

	dixserve -d -http 127.0.0.1:7788

Guess entries interactively against one dictionary:

	dixserve -c -file apertium-nob.nob.dix -ptype vblex

List the dictionary files of a directory:

	dixserve -list ../apertium-nob

# Configuration

Runtime configuration is read from a TOML file, created with defaults if missing:

	[nav]
	max_distance = 10000
	max_steps = 4096

	[index]
	min_unmatched = 2
	default_mode = "entries"

	[interest.elements]
	sdef = ["n"]

DIXSERVE_* environment variables override the file.

# Command Line Flags

	-version  Show current version
	-d        Enable debug mode with detailed logging
	-c        Run the CLI instead of the IPC server (needs -file)
	-config   Path to a config file
	-file     Dictionary to open at startup
	-ptype    Paradigm type for the CLI (default from config)
	-mode     Guess mode for the CLI, entries or pardefs
	-http     Also serve HTTP on this address
	-list     List the dictionary files in a directory and exit

Logs go to stderr; stdout carries IPC responses only.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/dixserve/internal/cli"
	"github.com/bastiangx/dixserve/internal/logger"
	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/config"
	"github.com/bastiangx/dixserve/pkg/dictionary"
	"github.com/bastiangx/dixserve/pkg/paradigm"
	"github.com/bastiangx/dixserve/pkg/server"
)

const (
	Version = "0.3.0-beta"
	AppName = "dixserve"
	gh      = "https://github.com/bastiangx/dixserve"
)

// sigHandler cancels the returned context on SIGINT/SIGTERM. A second signal exits at once.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(0)
	}()
	return ctx
}

// main only manages the flow between config, session and the chosen front end.
func main() {
	ctx := sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing guesses")
	configPath := flag.String("config", "", "Path to a custom config file")
	dictFile := flag.String("file", "", "Dictionary file to open at startup")
	ptype := flag.String("ptype", "", "Paradigm type for CLI guesses (default from config)")
	mode := flag.String("mode", "", "Guess mode for the CLI: entries or pardefs (default from config)")
	httpAddr := flag.String("http", defaultConfig.Server.HTTPAddr, "Also serve HTTP on this address")
	listDir := flag.String("list", "", "List the dictionary files in a directory and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	if *listDir != "" {
		if err := listFiles(*listDir); err != nil {
			log.Fatalf("Failed to list %s: %v", *listDir, err)
		}
		return
	}

	cfg, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if activePath != "" {
		log.Debugf("Using config file: (%s)", activePath)
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	session := server.NewSession(cfg)

	var docID string
	if *dictFile != "" {
		path := utils.GetAbsolutePath(*dictFile)
		doc, err := session.Open("", path, "")
		if err != nil {
			log.Fatalf("Failed to open dictionary: %v", err)
		}
		docID = doc.ID
		log.Debugf("Opened %s as %s (%s)", path, docID, doc.Kind)
	}

	// CLI is mainly for testing guesses against a real dictionary before wiring an editor.
	if *cliMode {
		if docID == "" {
			log.Fatal("CLI mode needs a dictionary: use -file")
		}
		cliType := cfg.CLI.DefaultPType
		if *ptype != "" {
			cliType = *ptype
		}
		modeName := cfg.CLI.DefaultMode
		if *mode != "" {
			modeName = *mode
		}
		m, err := paradigm.ParseMode(modeName)
		if err != nil {
			log.Fatalf("Invalid mode: %v", err)
		}
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "doc", docID, "ptype", cliType, "mode", m)

		inputHandler := cli.NewInputHandler(session, docID, cliType, m)
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	if cfg.Server.HTTPAddr != "" {
		h := server.NewHTTPServer(session, logger.New("http"), int64(cfg.Server.MaxRequestBytes))
		go func() {
			log.Infof("HTTP listening on %s", cfg.Server.HTTPAddr)
			if err := server.ListenAndServe(ctx, cfg.Server.HTTPAddr, h); err != nil {
				log.Errorf("HTTP server: %v", err)
			}
		}()
	}

	log.Debug("spawning IPC")
	showStartupInfo(activePath)

	srv := server.NewServer(session)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("IPC server failed: %v", err)
	}
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ DixServe ] Editing help for Apertium dictionaries")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

func listFiles(dir string) error {
	files, err := dictionary.ListFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warnf("No dictionary files in %s", dir)
		return nil
	}
	for _, f := range files {
		fmt.Printf("%-10s %10d  %s\n", f.Kind, f.Size, f.Path)
	}
	return nil
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("%s %s", AppName, Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	if configPath != "" {
		log.Infof("config: ( %s )", configPath)
	}
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
