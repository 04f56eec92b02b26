package main

import (
	"fmt"
	"os"

	"github.com/sertantai/lrt-engine/internal/common"
)

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "scrape":
		runScrape(os.Args[2:])
	case "cascade":
		runCascade(os.Args[2:])
	case "version", "-version", "--version", "-v":
		fmt.Printf("lrtscraper version %s\n", common.GetVersion())
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: lrtscraper <serve|scrape|cascade> [-config path] [flags]")
	fmt.Fprintln(os.Stderr, "  serve   - run the daily discovery+parse scheduler and optional admin endpoint")
	fmt.Fprintln(os.Stderr, "  scrape  - run one discovery+parse+cascade session and exit")
	fmt.Fprintln(os.Stderr, "  cascade - force a reparse-and-cascade cycle for one or more named laws")
}
