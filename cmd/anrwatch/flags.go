package main

import "time"

const (
	defaultAPIURL     = "http://127.0.0.1:8090/api"
	defaultAPITimeout = 10 * time.Second
)

// ServeFlags Flag structs to decouple cobra from logic for testing.
type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	LogFile    string
}

type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

type StatusFlags struct {
	APIFlags
	JSON bool
}

type EventsFlags struct {
	APIFlags
	Types []string
}
