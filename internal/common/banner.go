package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 70
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` 88888888 88  ,ad8888ba,  88      a8P  I8,        8        ,8I`,
		`    88    88 d8"'    '"8b 88    ,88'   '8b       d8b       d8'`,
		`    88    88 d8'          88  ,88"      "8,     ,8"8,     ,8"`,
		`    88    88 88           88,d88'        Y8     8P  Y8    8P`,
		`    88    88 88           8888"88,       '8b   d8'  '8b  d8'`,
		`    88    88 Y8,          88P   Y8b       '8a a8'    '8a a8'`,
		`    88    88  Y8a.    .a8 88     "88,      '8a8'      '8a8'`,
		`    88    88   '"Y8888Y"' 88       Y8b      '8'        '8'`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Market Data & Technical Indicator Engine%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 16
	kvLines := [][2]string{
		{"Version", version},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Storage", config.Storage.Path},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("storage_path", config.Storage.Path).
		Msg("Application started")
}
