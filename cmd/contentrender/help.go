package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: contentrender <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render markup or document trees to HTML")
	fmt.Fprintln(w, "  serve      Run the HTTP rendering API")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'contentrender help <command>' for details on a specific command.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed timing and debug logs")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: contentrender render <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render content to sanitized HTML with headings, plain text and metrics.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    .md/.markdown (markup), .json (document tree), a directory, or - for stdin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory (single file default: stdout)")
	fmt.Fprintln(w, "  -f, --format <s>          Output: json, html, preview (default json)")
	fmt.Fprintln(w, "  -t, --type <s>            Content type for stdin: markup, structured")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "      --no-toc              Omit the table of contents from previews")
	fmt.Fprintln(w, "      --css <name|path>     Preview style (default, minimal) or CSS file")
	printCommonFlags(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: contentrender serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP API:")
	fmt.Fprintln(w, "  POST /v1/render                 Render a request without storing it")
	fmt.Fprintln(w, "  POST /v1/documents              Store a new document")
	fmt.Fprintln(w, "  PUT  /v1/documents/{id}         Replace a document")
	fmt.Fprintln(w, "  GET  /v1/documents/{id}         Read a document, rebuilding stale projections")
	fmt.Fprintln(w, "  GET  /v1/documents/{id}/preview Standalone HTML page")
	fmt.Fprintln(w, "  GET  /healthz                   Liveness probe")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser origins are allowed through server.corsOrigins or CONTENTRENDER_CORS_ORIGINS.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (overrides server.addr)")
	printCommonFlags(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: contentrender config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration (file, environment and defaults) as YAML.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	printCommonFlags(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: contentrender version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: contentrender help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
