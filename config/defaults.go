package config

import "time"

// Defaults for the spreadsheet MCP server. They are referenced by Config and
// can be overridden via environment variables or CLI flags.

const (
	// Identity reported during initialize.
	ServerName             = "spreadsheet-mcp-server"
	DefaultVersion         = "1.1.0"
	DefaultProtocolVersion = "2024-11-05"

	// Storage
	DefaultBasePath = "spreadsheets"

	// Workbook defaults
	DefaultSheetName   = "Sheet1"
	DefaultFormat      = "xlsx"
	DefaultChartTitle  = "Chart"
	DefaultChartAnchor = "A1"
	DefaultListPattern = "*"

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

const (
	// Concurrency: the dispatcher is not reentrant.
	DefaultMaxConcurrentCalls = 1
	DefaultMaxOpenWorkbooks   = 1

	// Framing
	DefaultMaxLineBytes = 16 * 1024 * 1024 // 16MB per JSON-RPC line
)

const (
	// Timeouts. Zero disables the bound.
	DefaultOperationTimeout = 0 * time.Second
	DefaultQueueTimeout     = 0 * time.Second
)
