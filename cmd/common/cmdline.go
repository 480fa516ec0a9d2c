// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type GlobalFlags struct {
	Flagset        *flag.FlagSet
	URL            string
	ConfigFile     string
	SchemaURL      string
	Credentials    string
	BuiltinSchema  bool
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	MetricsAddr    string
}

func NewGlobalFlags() *GlobalFlags {
	f := &GlobalFlags{
		Flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.Flagset.StringVar(
		&f.URL,
		"url",
		"",
		"node socket URL (ws://, wss://, tcp:// or unix://)",
	)
	f.Flagset.StringVar(
		&f.ConfigFile,
		"config",
		"",
		"YAML config file. command line options override its values",
	)
	f.Flagset.StringVar(
		&f.SchemaURL,
		"schema-url",
		"",
		"HTTP base URL of the schema endpoint (defaults to the socket host)",
	)
	f.Flagset.StringVar(
		&f.Credentials,
		"credentials",
		"",
		"credentials to present in the handshake",
	)
	f.Flagset.BoolVar(
		&f.BuiltinSchema,
		"builtin-schema",
		false,
		"use the built-in schema instead of fetching it from the node",
	)
	f.Flagset.DurationVar(
		&f.RequestTimeout,
		"timeout",
		0,
		"request timeout",
	)
	f.Flagset.StringVar(&f.LogLevel, "log-level", "info", "log level")
	f.Flagset.StringVar(&f.LogFormat, "log-format", "text", "log format (text or json)")
	f.Flagset.StringVar(
		&f.MetricsAddr,
		"metrics-addr",
		"",
		"serve prometheus metrics on this address",
	)
	return f
}

func (f *GlobalFlags) Parse() {
	if err := f.Flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	if f.URL == "" && f.ConfigFile == "" {
		fmt.Printf("You must specify one of -url or -config\n\n")
		f.Flagset.PrintDefaults()
		os.Exit(1)
	}
}

// Logger builds the logger selected on the command line
func (f *GlobalFlags) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		fmt.Printf("Invalid log level: %s\n", f.LogLevel)
		os.Exit(1)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch f.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	default:
		fmt.Printf("Invalid log format: %s\n", f.LogFormat)
		os.Exit(1)
	}
	return nil
}
